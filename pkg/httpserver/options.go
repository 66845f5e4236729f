package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Server. Options panic on invalid arguments since they
// are programming errors.
type Option func(*config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: WithAddr: empty address")
	}
	return func(c *config) { c.addr = addr }
}

func positive(name string, d time.Duration) {
	if d <= 0 {
		panic("httpserver: " + name + ": duration must be > 0")
	}
}

func WithReadTimeout(d time.Duration) Option {
	positive("WithReadTimeout", d)
	return func(c *config) { c.readTimeout = d }
}

func WithReadHeaderTimeout(d time.Duration) Option {
	positive("WithReadHeaderTimeout", d)
	return func(c *config) { c.readHeaderTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	positive("WithWriteTimeout", d)
	return func(c *config) { c.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	positive("WithIdleTimeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout bounds both the graceful drain and the lifecycle stop.
func WithShutdownTimeout(d time.Duration) Option {
	positive("WithShutdownTimeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithServer runs the given http.Server. Its Handler is replaced; address and
// timeouts already set on it win over options.
func WithServer(srv *http.Server) Option {
	if srv == nil {
		panic("httpserver: WithServer: nil server")
	}
	return func(c *config) { c.server = srv }
}

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithLifecycle registers components started, in order, before the listener
// opens and stopped in reverse order after shutdown.
func WithLifecycle(l ...Lifecycle) Option {
	for _, c := range l {
		if c == nil {
			panic("httpserver: WithLifecycle: nil component")
		}
	}
	return func(c *config) {
		c.lifecycles = append(c.lifecycles, l...)
	}
}
