// Command sessiond serves a small session API backed by the configured
// key-value store. Run several instances against one Redis or etcd cluster to
// see sessions follow clients between them.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/kvsession/pkg/config"
	"github.com/dmitrymomot/kvsession/pkg/etcd"
	"github.com/dmitrymomot/kvsession/pkg/httpserver"
	"github.com/dmitrymomot/kvsession/pkg/kvstore"
	"github.com/dmitrymomot/kvsession/pkg/kvstore/memory"
	"github.com/dmitrymomot/kvsession/pkg/logger"
	"github.com/dmitrymomot/kvsession/pkg/redis"
	"github.com/dmitrymomot/kvsession/pkg/session"
	"github.com/dmitrymomot/kvsession/pkg/session/codec"
)

// Store backends accepted by STORE_BACKEND.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendEtcd   = "etcd"
)

type appConfig struct {
	Backend       string        `env:"STORE_BACKEND" envDefault:"memory"`
	MemoryCleanup time.Duration `env:"MEMORY_CLEANUP_INTERVAL" envDefault:"1m"`
	// EncryptionKey is a hex-encoded 32-byte key. When set, payloads are
	// sealed on top of the configured codec.
	EncryptionKey string `env:"SESSION_ENCRYPTION_KEY"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg     appConfig
		logCfg     logger.Config
		httpCfg    httpserver.Config
		sessionCfg session.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&appCfg) },
		func() error { return config.Load(&logCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&sessionCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	log, err := logger.NewFromConfig(logCfg, logger.WithContextExtractors(requestIDExtractor))
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	store, err := newBackend(appCfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeline := session.NewMiddleware()
	opts := []session.Option{
		session.WithDialer(store.dial),
		session.WithPipeline(pipeline),
		session.WithLogger(log),
		session.WithMetrics(reg),
	}
	if appCfg.EncryptionKey != "" {
		c, err := encryptedCodec(sessionCfg.Codec, appCfg.EncryptionKey)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithCodec(c))
	}
	mgr := session.NewFromConfig(sessionCfg, opts...)

	h := &handlers{mgr: mgr}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, append(store.probes, func(ctx context.Context) error {
		_, err := mgr.Size(ctx)
		return err
	})...))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Route("/session", func(r chi.Router) {
		r.Use(pipeline.Handler)
		r.Get("/", h.show)
		r.Delete("/", h.invalidate)
		r.With(mgr.EnsureSession).Put("/{key}", h.set)
		r.With(mgr.RequireSession).Delete("/{key}", h.unset)
	})

	log.InfoContext(ctx, "starting sessiond",
		logger.Backend(appCfg.Backend),
		logger.Codec(sessionCfg.Codec),
		slog.String("addr", httpCfg.Addr),
	)

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithLifecycle(mgr),
	)
	return srv.Run(ctx, r)
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.RequestID(id), true
	}
	return slog.Attr{}, false
}

// backend is the configured store: how to dial it and the extra readiness
// probes it offers.
type backend struct {
	dial   session.Dialer
	probes []func(context.Context) error
}

func newBackend(cfg appConfig) (*backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case backendMemory:
		return &backend{dial: func(context.Context) (kvstore.Pool, error) {
			return memory.New(cfg.MemoryCleanup), nil
		}}, nil
	case backendRedis:
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, err
		}
		return redisBackend(redisCfg), nil
	case backendEtcd:
		var etcdCfg etcd.Config
		if err := config.Load(&etcdCfg); err != nil {
			return nil, err
		}
		return &backend{dial: etcd.Dialer(etcdCfg)}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q: want %s, %s or %s", cfg.Backend, backendMemory, backendRedis, backendEtcd)
	}
}

// redisBackend remembers the pool of the current run so readiness can ping
// through it.
func redisBackend(cfg redis.Config) *backend {
	var current atomic.Pointer[redis.Pool]
	dial := redis.Dialer(cfg)

	return &backend{
		dial: func(ctx context.Context) (kvstore.Pool, error) {
			p, err := dial(ctx)
			if err != nil {
				return nil, err
			}
			if rp, ok := p.(*redis.Pool); ok {
				current.Store(rp)
			}
			return p, nil
		},
		probes: []func(context.Context) error{
			func(ctx context.Context) error {
				p := current.Load()
				if p == nil {
					return session.ErrNotStarted
				}
				return redis.PoolHealthcheck(p)(ctx)
			},
		},
	}
}

func encryptedCodec(name, hexKey string) (session.Codec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding SESSION_ENCRYPTION_KEY: %w", err)
	}
	inner, err := session.LookupCodec(name)
	if err != nil {
		return nil, err
	}
	return codec.Encrypted(inner, key)
}

type handlers struct {
	mgr *session.Manager
}

type sessionView struct {
	ID         string         `json:"id"`
	New        bool           `json:"new"`
	CreatedAt  time.Time      `json:"created_at"`
	Attributes map[string]any `json:"attributes"`
}

func (h *handlers) show(w http.ResponseWriter, r *http.Request) {
	s := h.mgr.Current(r.Context())
	if s == nil {
		http.Error(w, "no session", http.StatusNotFound)
		return
	}
	st := s.State()
	writeJSON(w, http.StatusOK, sessionView{
		ID:         st.ID,
		New:        s.IsNew(),
		CreatedAt:  st.CreatedAt,
		Attributes: st.Attributes,
	})
}

func (h *handlers) set(w http.ResponseWriter, r *http.Request) {
	s := session.MustFromContext(r.Context())

	var body struct {
		Value any `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Set(chi.URLParam(r, "key"), body.Value)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) unset(w http.ResponseWriter, r *http.Request) {
	session.MustFromContext(r.Context()).Delete(chi.URLParam(r, "key"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Invalidate(r.Context(), w); err != nil {
		if errors.Is(err, session.ErrStore) {
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
