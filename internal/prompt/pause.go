package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/hongyouqin/futures-trading-system/internal/config"
)

// Message is printed before waiting for acknowledgment.
const Message = "Press Enter to continue . . . "

// Pauser waits for the user before the console window goes away.
type Pauser interface {
	Pause(ctx context.Context) error
}

// LinePauser prints Message to Out and blocks until a newline or EOF
// arrives on In, or ctx is done.
type LinePauser struct {
	In  io.Reader
	Out io.Writer
}

func (p *LinePauser) Pause(ctx context.Context) error {
	if _, err := fmt.Fprint(p.Out, Message); err != nil {
		return err
	}

	// The read cannot be interrupted; on cancellation the goroutine is
	// left behind until the process exits.
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return ctx.Err()
	case err := <-done:
		if err == io.EOF {
			fmt.Fprintln(p.Out)
			return nil
		}
		return err
	}
}

// Nop never blocks.
type Nop struct{}

func (Nop) Pause(context.Context) error { return nil }

// New picks a Pauser for mode. In auto mode the prompt is shown only when
// stdin is an interactive terminal.
func New(mode config.PauseMode, in *os.File, out io.Writer) Pauser {
	switch mode {
	case config.PauseNever:
		return Nop{}
	case config.PauseAuto:
		if !term.IsTerminal(int(in.Fd())) {
			return Nop{}
		}
	}
	return &LinePauser{In: in, Out: out}
}
