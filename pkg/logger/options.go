package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Option configures New.
type Option func(*config)

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output format. It panics on anything but FormatJSON or
// FormatText.
func WithFormat(f Format) Option {
	if f != FormatJSON && f != FormatText {
		panic(fmt.Errorf("logger: invalid format %q: must be %q or %q", f, FormatJSON, FormatText))
	}
	return func(c *config) { c.format = f }
}

func WithTextFormatter() Option { return WithFormat(FormatText) }

func WithJSONFormatter() Option { return WithFormat(FormatJSON) }

// WithOutput sets the destination. Nil is ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithHandlerOptions replaces the slog handler options, including the level.
// Nil is ignored.
func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(c *config) {
		if opts != nil {
			c.handlerOptions = opts
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithContextExtractors registers extractors run on every record. Nil
// extractors are skipped.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithContextValue logs ctx.Value(key) under name whenever it is set.
func WithContextValue(name string, key any) Option {
	if name == "" || key == nil {
		return func(*config) {}
	}
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		if v := ctx.Value(key); v != nil {
			return slog.Any(name, v), true
		}
		return slog.Attr{}, false
	})
}

type preset struct {
	level  slog.Level
	format Format
}

var presets = map[string]preset{
	EnvDevelopment: {slog.LevelDebug, FormatText},
	EnvStaging:     {slog.LevelInfo, FormatJSON},
	EnvProduction:  {slog.LevelInfo, FormatJSON},
}

var envAliases = map[string]string{
	"dev":   EnvDevelopment,
	"stage": EnvStaging,
	"prod":  EnvProduction,
}

// WithEnvironment applies the level and format preset for env and tags every
// record with service and env. Unknown names use the development preset. An
// empty service leaves the logger untouched.
func WithEnvironment(env, service string) Option {
	if alias, ok := envAliases[env]; ok {
		env = alias
	}
	p, ok := presets[env]
	if !ok {
		env = EnvDevelopment
		p = presets[env]
	}
	return func(c *config) {
		if service == "" {
			return
		}
		c.level = p.level
		c.format = p.format
		c.attrs = append(c.attrs,
			slog.String("service", service),
			slog.String("env", env),
		)
	}
}

// WithDevelopment is WithEnvironment(EnvDevelopment, service): text, DEBUG.
func WithDevelopment(service string) Option {
	return WithEnvironment(EnvDevelopment, service)
}

// WithStaging is WithEnvironment(EnvStaging, service).
func WithStaging(service string) Option {
	return WithEnvironment(EnvStaging, service)
}

// WithProduction is WithEnvironment(EnvProduction, service): JSON, INFO.
func WithProduction(service string) Option {
	return WithEnvironment(EnvProduction, service)
}
