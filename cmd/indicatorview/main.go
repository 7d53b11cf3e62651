package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hongyouqin/futures-trading-system/internal/wrapper"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := Execute(ctx, os.Args[1:])
	cancel()

	if err != nil {
		// the wrapper already told the user
		if !errors.Is(err, wrapper.ErrMissingSymbol) {
			log.Error().Err(err).Msg("indicatorview failed")
		}
		os.Exit(wrapper.ExitCode(err))
	}
}
