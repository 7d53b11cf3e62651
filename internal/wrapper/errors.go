package wrapper

import (
	"errors"
	"fmt"

	"github.com/hongyouqin/futures-trading-system/internal/runner"
)

// ErrMissingSymbol is returned when no symbol was supplied.
var ErrMissingSymbol = errors.New("symbol is empty")

// StepError reports the invocation that stopped the run.
type StepError struct {
	Period string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("indicator view failed for period %s: %v", e.Period, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ExitCode maps a Run error to the wrapper's process exit status. A child
// that exited non-zero passes its code through; everything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
