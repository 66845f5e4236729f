package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config holds logger settings loaded from the environment.
type Config struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"json"`
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"SERVICE_NAME" envDefault:"kvsession"`
}

// NewFromConfig creates a logger from cfg. Explicit Level and Format win over
// the environment defaults; extra options are applied last.
func NewFromConfig(cfg Config, opts ...Option) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	format := Format(strings.ToLower(cfg.Format))
	if format != FormatJSON && format != FormatText {
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", cfg.Format, FormatJSON, FormatText)
	}

	configOpts := []Option{
		WithEnvironment(cfg.Env, cfg.Service),
		WithLevel(level),
		WithFormat(format),
	}
	configOpts = append(configOpts, opts...)

	return New(configOpts...), nil
}

// ParseLevel converts a level name (debug, info, warn, error) to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
