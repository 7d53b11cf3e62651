package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory when
// no explicit path is given.
const DefaultPath = "indicatorview.yaml"

// Environment overrides applied on top of the file.
const (
	EnvPython = "INDICATOR_VIEW_PYTHON"
	EnvScript = "INDICATOR_VIEW_SCRIPT"
)

// Periods understood by indicator_view.py.
const (
	PeriodDaily  = "daily"
	PeriodWeekly = "weekly"
)

// FailurePolicy decides what happens after an invocation fails.
type FailurePolicy string

const (
	FailureContinue FailurePolicy = "continue"
	FailureAbort    FailurePolicy = "abort"
)

// PauseMode controls the acknowledgment prompt before exit.
type PauseMode string

const (
	PauseAlways PauseMode = "always"
	PauseNever  PauseMode = "never"
	PauseAuto   PauseMode = "auto"
)

// Config holds everything the wrapper needs to locate and run the
// external indicator script.
type Config struct {
	Python          string            `yaml:"python"`           // Interpreter, resolved via PATH
	Script          string            `yaml:"script"`           // Path to indicator_view.py
	Workdir         string            `yaml:"workdir"`          // Child working directory, empty = inherit
	Periods         []string          `yaml:"periods"`          // Invocation order
	OnFailure       FailurePolicy     `yaml:"on_failure"`       // continue | abort
	Pause           PauseMode         `yaml:"pause"`            // always | never | auto
	LogLevel        string            `yaml:"log_level"`        // zerolog level name
	ReportPath      string            `yaml:"report_path"`      // Optional JSON run summary
	MetricsTextfile string            `yaml:"metrics_textfile"` // Optional prometheus textfile
	Env             map[string]string `yaml:"env"`              // Extra child environment
}

// Default runs daily then weekly with the plain python interpreter.
func Default() *Config {
	return &Config{
		Python:    "python",
		Script:    "indicator_view.py",
		Periods:   []string{PeriodDaily, PeriodWeekly},
		OnFailure: FailureContinue,
		Pause:     PauseAuto,
		LogLevel:  "info",
	}
}

// Load reads the config at path on top of the defaults and applies
// environment overrides. An empty path means DefaultPath, which may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPython); ok && v != "" {
		c.Python = v
	}
	if v, ok := lookup(EnvScript); ok && v != "" {
		c.Script = v
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Python) == "" {
		return fmt.Errorf("python cannot be empty")
	}
	if strings.TrimSpace(c.Script) == "" {
		return fmt.Errorf("script cannot be empty")
	}

	if len(c.Periods) == 0 {
		return fmt.Errorf("periods cannot be empty")
	}
	seen := make(map[string]bool, len(c.Periods))
	for _, p := range c.Periods {
		if p != PeriodDaily && p != PeriodWeekly {
			return fmt.Errorf("unsupported period %q (want %s or %s)", p, PeriodDaily, PeriodWeekly)
		}
		if seen[p] {
			return fmt.Errorf("duplicate period %q", p)
		}
		seen[p] = true
	}

	switch c.OnFailure {
	case FailureContinue, FailureAbort:
	default:
		return fmt.Errorf("on_failure must be %s or %s, got %q", FailureContinue, FailureAbort, c.OnFailure)
	}

	switch c.Pause {
	case PauseAlways, PauseNever, PauseAuto:
	default:
		return fmt.Errorf("pause must be one of always, never, auto, got %q", c.Pause)
	}

	for k := range c.Env {
		if k == "" || strings.Contains(k, "=") {
			return fmt.Errorf("invalid env key %q", k)
		}
	}
	return nil
}

// ChildEnv renders Env as KEY=value pairs. Order follows the map and is
// not significant to exec.
func (c *Config) ChildEnv() []string {
	if len(c.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		out = append(out, k+"="+v)
	}
	return out
}
