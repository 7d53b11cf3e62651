package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is re-executed as the child process. It echoes its
// arguments and exits with RUNNER_HELPER_EXIT.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("RUNNER_HELPER") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if d, err := time.ParseDuration(os.Getenv("RUNNER_HELPER_SLEEP")); err == nil {
		time.Sleep(d)
	}
	fmt.Fprintln(os.Stdout, strings.Join(args, " "))
	code, _ := strconv.Atoi(os.Getenv("RUNNER_HELPER_EXIT"))
	os.Exit(code)
}

func helperInvocation(env ...string) Invocation {
	return Invocation{
		Program: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--", "indicator_view.py", "--symbol", "AAPL", "--period", "daily"},
		Env:     append([]string{"RUNNER_HELPER=1"}, env...),
	}
}

func TestExecRunner_Success(t *testing.T) {
	var out bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &out}

	res, err := r.Run(context.Background(), helperInvocation())
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Duration > 0)
	assert.Equal(t, "indicator_view.py --symbol AAPL --period daily\n", out.String())
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	var out bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &out}

	res, err := r.Run(context.Background(), helperInvocation("RUNNER_HELPER_EXIT=3"))
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "exit status 3", err.Error())
}

func TestExecRunner_StartFailure(t *testing.T) {
	r := &ExecRunner{}
	res, err := r.Run(context.Background(), Invocation{Program: "indicator-view-does-not-exist"})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, err.Error(), "failed to start")

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestExecRunner_EmptyProgram(t *testing.T) {
	_, err := (&ExecRunner{}).Run(context.Background(), Invocation{})
	require.Error(t, err)
}

func TestExecRunner_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &out}
	res, err := r.Run(ctx, helperInvocation("RUNNER_HELPER_SLEEP=10s"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, res.ExitCode)
	assert.True(t, res.Duration < 10*time.Second)
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{Program: "python", Args: []string{"indicator_view.py", "--symbol", "V0"}}
	assert.Equal(t, "python indicator_view.py --symbol V0", inv.String())
}
