// Package runner starts external programs and waits for them to exit.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Invocation describes one external process run.
type Invocation struct {
	Program string
	Args    []string
	Dir     string   // empty = inherit
	Env     []string // appended to the parent environment
}

// String renders the command line for logs.
func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Program}, inv.Args...), " ")
}

// Result is what the wrapper learns from a finished process.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Runner runs one invocation to completion.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }
func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner runs invocations with os/exec. The child shares the given
// streams so it can draw directly to the console.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner wired to the process's own stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run blocks until the process exits or ctx is cancelled. A start
// failure reports ExitCode -1.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if inv.Program == "" {
		return Result{ExitCode: -1}, fmt.Errorf("empty program")
	}

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{ExitCode: 0, Duration: time.Since(start)}
	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", inv.Program, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Code: res.ExitCode, Err: err}
	}

	res.ExitCode = -1
	return res, fmt.Errorf("failed to start %s: %w", inv.Program, err)
}
