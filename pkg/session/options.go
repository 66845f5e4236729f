package session

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithConfig sets custom configuration
func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithDialer sets the function that opens the store pool on Start.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		m.dialer = d
	}
}

// WithPool uses an already opened pool. The manager closes it on Stop.
func WithPool(p kvstore.Pool) Option {
	if p == nil {
		panic("session: WithPool: nil pool")
	}
	return WithDialer(StaticDialer(p))
}

// WithCodec sets the codec directly, bypassing the registry lookup.
func WithCodec(c Codec) Option {
	return func(m *Manager) {
		m.codec = c
	}
}

// WithPipeline sets the request pipeline the manager attaches to on Start.
func WithPipeline(p Pipeline) Option {
	return func(m *Manager) {
		m.pipeline = p
	}
}

// WithTransport sets a custom session transport
func WithTransport(transport Transport) Option {
	return func(m *Manager) {
		m.transport = transport
	}
}

// WithLogger sets the logger. Protocol traces are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithIDGenerator overrides the identifier generator selected by Config.IDFormat.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) {
		m.newID = g
	}
}

// WithMetrics registers the manager's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		m.registerer = reg
	}
}

// WithTracer sets the tracer used for manager spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithMaxInactiveInterval sets the idle expiration of new and loaded sessions
func WithMaxInactiveInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.config.MaxInactiveInterval = d
	}
}

// WithRoute sets the routing suffix appended to new session ids
func WithRoute(route string) Option {
	return func(m *Manager) {
		m.config.Route = route
	}
}

// WithMaxCreateAttempts bounds the id collision retry loop
func WithMaxCreateAttempts(n int) Option {
	return func(m *Manager) {
		m.config.MaxCreateAttempts = n
	}
}
