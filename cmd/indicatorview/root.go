package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hongyouqin/futures-trading-system/internal/config"
	"github.com/hongyouqin/futures-trading-system/internal/metrics"
	"github.com/hongyouqin/futures-trading-system/internal/prompt"
	"github.com/hongyouqin/futures-trading-system/internal/report"
	"github.com/hongyouqin/futures-trading-system/internal/runner"
	"github.com/hongyouqin/futures-trading-system/internal/wrapper"
)

const version = "v0.1.0"

// app carries the process-level collaborators so tests can swap them.
type app struct {
	runner runner.Runner
	stdin  *os.File
	stdout io.Writer
	pauser prompt.Pauser // nil = derive from config
}

type flags struct {
	configPath      string
	python          string
	script          string
	workdir         string
	logLevel        string
	reportPath      string
	metricsTextfile string
	failFast        bool
	noPause         bool
}

func (f *flags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Config file (default ./"+config.DefaultPath+" if present)")
	fs.StringVar(&f.python, "python", "", "Python interpreter used to run the script")
	fs.StringVar(&f.script, "script", "", "Path to indicator_view.py")
	fs.StringVar(&f.workdir, "workdir", "", "Working directory for the script")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	fs.StringVar(&f.reportPath, "report", "", "Write a JSON run summary to this path")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this textfile")
	fs.BoolVar(&f.failFast, "fail-fast", false, "Stop after the first failing period")
	fs.BoolVar(&f.noPause, "no-pause", false, "Exit without waiting for Enter")
}

// apply overlays explicitly set flags on cfg.
func (f *flags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("python") {
		cfg.Python = f.python
	}
	if fs.Changed("script") {
		cfg.Script = f.script
	}
	if fs.Changed("workdir") {
		cfg.Workdir = f.workdir
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("report") {
		cfg.ReportPath = f.reportPath
	}
	if fs.Changed("metrics-textfile") {
		cfg.MetricsTextfile = f.metricsTextfile
	}
	if fs.Changed("fail-fast") {
		cfg.OnFailure = config.FailureContinue
		if f.failFast {
			cfg.OnFailure = config.FailureAbort
		}
	}
	if fs.Changed("no-pause") {
		cfg.Pause = config.PauseAuto
		if f.noPause {
			cfg.Pause = config.PauseNever
		}
	}
}

// Execute runs the CLI with the process's own stdio.
func Execute(ctx context.Context, args []string) error {
	a := &app{
		runner: runner.NewExecRunner(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	root := a.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "indicatorview <symbol>",
		Short: "Render daily and weekly indicator views for a futures symbol",
		Long: `indicatorview runs indicator_view.py for one symbol, first with
--period daily and then with --period weekly, and waits for Enter
before exiting.`,
		Example:       "  indicatorview V0\n  indicatorview rb2510 --python python3 --no-pause",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol string
			if len(args) == 1 {
				symbol = args[0]
			}
			return a.run(cmd, &f, symbol)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (a *app) run(cmd *cobra.Command, f *flags, symbol string) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		if symbol != "" {
			return err
		}
		// a missing symbol is still reported when the config is broken
		log.Warn().Err(err).Msg("config ignored, using defaults")
		cfg = config.Default()
	}
	f.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	pauser := a.pauser
	if pauser == nil {
		pauser = prompt.New(cfg.Pause, a.stdin, a.stdout)
	}

	reg := metrics.NewRegistry()
	w := wrapper.New(cfg, a.runner, pauser, a.stdout, log.Logger).WithObserver(reg)

	rep, runErr := w.Run(cmd.Context(), symbol)
	a.persist(cfg, rep, reg)
	return runErr
}

// persist writes the optional run artifacts. Failures here never change
// the exit status.
func (a *app) persist(cfg *config.Config, rep *wrapper.Report, reg *metrics.Registry) {
	if cfg.ReportPath != "" {
		if err := report.WriteJSON(cfg.ReportPath, rep); err != nil {
			log.Warn().Err(err).Str("path", cfg.ReportPath).Msg("run report not written")
		} else {
			log.Debug().Str("path", cfg.ReportPath).Msg("run report written")
		}
	}
	if cfg.MetricsTextfile != "" {
		if err := reg.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("metrics textfile not written")
		}
	}
}
