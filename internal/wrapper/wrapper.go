// Package wrapper runs indicator_view.py for one symbol across the
// configured periods, one after another.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hongyouqin/futures-trading-system/internal/config"
	"github.com/hongyouqin/futures-trading-system/internal/prompt"
	"github.com/hongyouqin/futures-trading-system/internal/runner"
)

// CompletionMessage is printed once every period has been run.
const CompletionMessage = "indicator views finished"

// Run outcomes, also used as the runs_total label.
const (
	OutcomeCompleted             = "completed"
	OutcomeCompletedWithFailures = "completed_with_failures"
	OutcomeAborted               = "aborted"
	OutcomeCancelled             = "cancelled"
	OutcomeMissingSymbol         = "missing_symbol"
)

// Observer receives per-invocation and per-run measurements.
type Observer interface {
	ObserveInvocation(period string, d time.Duration, err error)
	ObserveRun(outcome string, finished time.Time)
}

type nopObserver struct{}

func (nopObserver) ObserveInvocation(string, time.Duration, error) {}
func (nopObserver) ObserveRun(string, time.Time)                  {}

// Step is one finished invocation.
type Step struct {
	Period     string   `json:"period"`
	Command    []string `json:"command"`
	ExitCode   int      `json:"exit_code"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// Report summarises one wrapper run.
type Report struct {
	RunID      string    `json:"run_id"`
	Symbol     string    `json:"symbol"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Completed  bool      `json:"completed"`
	Steps      []Step    `json:"steps"`
}

// Wrapper drives the external script.
type Wrapper struct {
	cfg      *config.Config
	runner   runner.Runner
	pauser   prompt.Pauser
	out      io.Writer
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// New builds a Wrapper. Messages for the user go to out; diagnostics go
// to logger.
func New(cfg *config.Config, r runner.Runner, p prompt.Pauser, out io.Writer, logger zerolog.Logger) *Wrapper {
	if p == nil {
		p = prompt.Nop{}
	}
	return &Wrapper{
		cfg:      cfg,
		runner:   r,
		pauser:   p,
		out:      out,
		logger:   logger,
		observer: nopObserver{},
		now:      time.Now,
	}
}

// WithObserver attaches o to the wrapper.
func (w *Wrapper) WithObserver(o Observer) *Wrapper {
	if o != nil {
		w.observer = o
	}
	return w
}

// Invocation builds the command for symbol and period. The symbol is
// passed through untouched.
func (w *Wrapper) Invocation(symbol, period string) runner.Invocation {
	return runner.Invocation{
		Program: w.cfg.Python,
		Args:    []string{w.cfg.Script, "--symbol", symbol, "--period", period},
		Dir:     w.cfg.Workdir,
		Env:     w.cfg.ChildEnv(),
	}
}

// Run validates symbol, runs every configured period in order and waits
// for acknowledgment. The returned Report is always non-nil.
func (w *Wrapper) Run(ctx context.Context, symbol string) (*Report, error) {
	rep := &Report{
		RunID:     uuid.New().String(),
		Symbol:    symbol,
		StartedAt: w.now(),
		Steps:     []Step{},
	}
	logger := w.logger.With().Str("run_id", rep.RunID).Str("symbol", symbol).Logger()

	if symbol == "" {
		fmt.Fprintln(w.out, ErrMissingSymbol.Error())
		w.finish(rep, OutcomeMissingSymbol, logger)
		// exit status is 1 whether or not the prompt is interrupted
		_ = w.pause(ctx, logger)
		return rep, ErrMissingSymbol
	}

	var (
		runErr   error
		failures int
	)
	for _, period := range w.cfg.Periods {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		inv := w.Invocation(symbol, period)
		plog := logger.With().Str("period", period).Logger()
		plog.Info().Str("command", inv.String()).Msg("running indicator view")

		res, err := w.runner.Run(ctx, inv)
		step := Step{
			Period:     period,
			Command:    append([]string{inv.Program}, inv.Args...),
			ExitCode:   res.ExitCode,
			DurationMS: res.Duration.Milliseconds(),
		}
		w.observer.ObserveInvocation(period, res.Duration, err)

		if err == nil {
			rep.Steps = append(rep.Steps, step)
			plog.Info().Dur("duration", res.Duration).Msg("indicator view finished")
			continue
		}

		step.Error = err.Error()
		rep.Steps = append(rep.Steps, step)
		plog.Warn().Err(err).Int("exit_code", res.ExitCode).Dur("duration", res.Duration).Msg("indicator view failed")

		if ctx.Err() != nil || w.cfg.OnFailure == config.FailureAbort {
			runErr = &StepError{Period: period, Err: err}
			break
		}
		failures++
	}

	switch {
	case runErr == nil:
		fmt.Fprintln(w.out, CompletionMessage)
		rep.Completed = true
		outcome := OutcomeCompleted
		if failures > 0 {
			outcome = OutcomeCompletedWithFailures
		}
		w.finish(rep, outcome, logger)
	case ctx.Err() != nil:
		w.finish(rep, OutcomeCancelled, logger)
		// interrupted runs exit without waiting
		return rep, runErr
	default:
		var stepErr *StepError
		if errors.As(runErr, &stepErr) {
			fmt.Fprintf(w.out, "indicator view failed for period %s\n", stepErr.Period)
		}
		w.finish(rep, OutcomeAborted, logger)
	}

	if err := w.pause(ctx, logger); err != nil {
		return rep, err
	}
	return rep, runErr
}

func (w *Wrapper) finish(rep *Report, outcome string, logger zerolog.Logger) {
	rep.Outcome = outcome
	rep.FinishedAt = w.now()
	w.observer.ObserveRun(outcome, rep.FinishedAt)
	logger.Info().
		Str("outcome", outcome).
		Int("steps", len(rep.Steps)).
		Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("run finished")
}

// pause waits for acknowledgment. Only cancellation is returned; other
// prompt failures are logged.
func (w *Wrapper) pause(ctx context.Context, logger zerolog.Logger) error {
	err := w.pauser.Pause(ctx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		logger.Info().Msg("acknowledgment interrupted")
		return fmt.Errorf("acknowledgment interrupted: %w", ctx.Err())
	default:
		logger.Warn().Err(err).Msg("acknowledgment prompt failed")
		return nil
	}
}
