package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

// Option configures Parse and Load.
type Option func(*env.Options)

// WithPrefix prepends prefix to every variable name, so one struct can be
// read several times (e.g. "PRIMARY_" and "REPLICA_" redis configs).
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithEnvironment reads from vars instead of the process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = vars
	}
}

// WithRequiredIfNoDefault makes every field without envDefault mandatory.
func WithRequiredIfNoDefault() Option {
	return func(o *env.Options) {
		o.RequiredIfNoDef = true
	}
}

// Parse reads the environment into a fresh T. It never touches the cache.
func Parse[T any](opts ...Option) (T, error) {
	var v T
	err := parseInto(&v, opts)
	return v, err
}

// MustParse is Parse that panics on failure.
func MustParse[T any](opts ...Option) T {
	v, err := Parse[T](opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func parseInto(v any, opts []Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(v, o); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
