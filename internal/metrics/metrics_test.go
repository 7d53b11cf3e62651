package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveInvocation(t *testing.T) {
	r := NewRegistry()

	r.ObserveInvocation("daily", 2*time.Second, nil)
	r.ObserveInvocation("weekly", time.Second, errors.New("exit status 1"))
	r.ObserveInvocation("weekly", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Invocations.WithLabelValues("daily", ResultOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Invocations.WithLabelValues("daily", ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Invocations.WithLabelValues("weekly", ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Invocations.WithLabelValues("weekly", ResultOK)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.InvocationDuration))
}

func TestObserveRun(t *testing.T) {
	r := NewRegistry()
	finished := time.Unix(1760400000, 0)

	r.ObserveRun("completed", finished)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("completed")))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(r.LastRun))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.ObserveInvocation("daily", time.Second, nil)

	path := filepath.Join(t.TempDir(), "indicatorview.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `indicatorview_invocations_total{period="daily",result="ok"} 1`)
}
