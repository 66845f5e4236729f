package session

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dmitrymomot/kvsession/pkg/session"

// Lookup results recorded by the kvsession_manager_lookups_total counter.
const (
	lookupContext     = "context"
	lookupLoaded      = "loaded"
	lookupMiss        = "miss"
	lookupPlaceholder = "placeholder"
	lookupError       = "error"
)

type metrics struct {
	creates    prometheus.Counter
	collisions prometheus.Counter
	lookups    *prometheus.CounterVec
	saves      *prometheus.CounterVec
	removes    prometheus.Counter
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		creates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvsession",
			Subsystem: "manager",
			Name:      "creates_total",
			Help:      "Sessions created with a reserved id.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvsession",
			Subsystem: "manager",
			Name:      "id_collisions_total",
			Help:      "Create attempts that hit an existing key.",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvsession",
			Subsystem: "manager",
			Name:      "lookups_total",
			Help:      "Session lookups by result.",
		}, []string{"result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvsession",
			Subsystem: "manager",
			Name:      "saves_total",
			Help:      "Session saves, split by whether the payload was written.",
		}, []string{"written"}),
		removes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvsession",
			Subsystem: "manager",
			Name:      "removes_total",
			Help:      "Sessions removed from the store.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvsession",
			Subsystem: "manager",
			Name:      "errors_total",
			Help:      "Failed manager operations.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kvsession",
			Subsystem: "manager",
			Name:      "operation_duration_seconds",
			Help:      "Latency of manager operations that reach the store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.creates, m.collisions, m.lookups, m.saves, m.removes, m.failures, m.latency)
	}
	return m
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// observe starts a span for op and returns the function that ends it.
func (m *Manager) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "session."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		m.metrics.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			m.metrics.failures.WithLabelValues(op).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
