package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invocation result labels.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Registry holds the wrapper's Prometheus metrics. It uses its own
// prometheus.Registry so a run exports only what it recorded.
type Registry struct {
	reg *prometheus.Registry

	Invocations        *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	Runs               *prometheus.CounterVec
	LastRun            prometheus.Gauge
}

// NewRegistry creates and registers all wrapper metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indicatorview_invocations_total",
				Help: "External indicator_view invocations by period and result",
			},
			[]string{"period", "result"},
		),

		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indicatorview_invocation_duration_seconds",
				Help:    "Wall time of each indicator_view invocation",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"period"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indicatorview_runs_total",
				Help: "Wrapper runs by outcome",
			},
			[]string{"outcome"},
		),

		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indicatorview_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}

	r.reg.MustRegister(r.Invocations, r.InvocationDuration, r.Runs, r.LastRun)
	return r
}

// ObserveInvocation records one finished external invocation.
func (r *Registry) ObserveInvocation(period string, d time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	r.Invocations.WithLabelValues(period, result).Inc()
	r.InvocationDuration.WithLabelValues(period).Observe(d.Seconds())
}

// ObserveRun records the outcome of a whole wrapper run.
func (r *Registry) ObserveRun(outcome string, finished time.Time) {
	r.Runs.WithLabelValues(outcome).Inc()
	r.LastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in text exposition format for the
// node_exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
