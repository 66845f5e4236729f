package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
	"github.com/dmitrymomot/kvsession/pkg/logger"
)

// placeholder is written by Create to reserve an id. A real payload never
// encodes to these bytes.
var placeholder = []byte("null")

// Dialer opens the connection pool when the manager starts.
type Dialer func(ctx context.Context) (kvstore.Pool, error)

// StaticDialer returns a Dialer that always hands out p.
func StaticDialer(p kvstore.Pool) Dialer {
	return func(context.Context) (kvstore.Pool, error) {
		return p, nil
	}
}

// Pipeline is the request-processing chain the manager hooks into on Start.
// Middleware is the HTTP implementation.
type Pipeline interface {
	Attach(m *Manager) error
}

// LifecycleState is the manager's position in its start/stop cycle.
type LifecycleState int32

const (
	StateStopped LifecycleState = iota
	StateStarting
	StateStarted
	StateStopping
)

func (s LifecycleState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// runtime is everything Start produces. It is swapped atomically so an
// operation sees either a complete runtime or none.
type runtime struct {
	pool      kvstore.Pool
	codec     Codec
	managerID string
}

func (rt *runtime) key(id string) []byte {
	return []byte(rt.managerID + "-" + id)
}

// Manager stores sessions in a shared key-value store so any instance of a
// service can serve any request.
type Manager struct {
	config     Config
	dialer     Dialer
	codec      Codec
	pipeline   Pipeline
	transport  Transport
	logger     *slog.Logger
	newID      IDGenerator
	registerer prometheus.Registerer
	tracer     trace.Tracer

	metrics *metrics
	cache   *localCache

	lifecycle sync.Mutex
	state     atomic.Int32
	rt        atomic.Pointer[runtime]
}

// New creates a new session manager with the given options.
// The manager does nothing until Start succeeds.
func New(opts ...Option) *Manager {
	m := &Manager{
		config: DefaultConfig(),
		logger: slog.New(slog.DiscardHandler),
		tracer: defaultTracer(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.newID == nil {
		m.newID = generatorFor(m.config.IDFormat)
	}
	if m.config.MaxCreateAttempts <= 0 {
		m.config.MaxCreateAttempts = 1
	}

	m.logger = m.logger.With(logger.Component("session"))
	if m.transport == nil {
		t, err := transportFor(m.config)
		if err != nil {
			m.logger.Warn("falling back to cookie transport", logger.Error(err))
			t = NewCookieTransport(m.config.CookieName, WithSecureCookie(m.config.SecureCookies))
		}
		m.transport = t
	}
	m.metrics = newMetrics(m.registerer)
	m.cache = newLocalCache(m.config.LocalCacheSize)

	return m
}

// NewSession returns an empty session carrying the configured inactivity
// window. It makes the manager a Factory for codecs.
func (m *Manager) NewSession() *Session {
	return NewSession(m.config.MaxInactiveInterval)
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Transport returns the token transport.
func (m *Manager) Transport() Transport {
	return m.transport
}

// State returns the lifecycle state.
func (m *Manager) State() LifecycleState {
	return LifecycleState(m.state.Load())
}

// ManagerID returns the key prefix of the current run, empty when stopped.
// It is regenerated on every Start.
func (m *Manager) ManagerID() string {
	if rt := m.rt.Load(); rt != nil {
		return rt.managerID
	}
	return ""
}

// LocalSize returns the number of sessions in the local diagnostic cache.
func (m *Manager) LocalSize() int {
	return m.cache.len()
}

// Start attaches the manager to its pipeline, resolves the codec, opens the
// store pool and generates a fresh manager id. On failure the manager stays
// stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if s := m.State(); s != StateStopped {
		return errors.Join(ErrInvalidState, fmt.Errorf("start from %s", s))
	}
	m.state.Store(int32(StateStarting))

	rt, err := m.start(ctx)
	if err != nil {
		m.state.Store(int32(StateStopped))
		m.logger.ErrorContext(ctx, "session manager failed to start", logger.Error(err))
		return err
	}

	m.rt.Store(rt)
	m.state.Store(int32(StateStarted))

	m.logger.InfoContext(ctx, "session manager started",
		logger.ManagerID(rt.managerID),
		slog.Duration("max_inactive_interval", m.config.MaxInactiveInterval),
		slog.String("route", m.config.Route),
	)
	return nil
}

func (m *Manager) start(ctx context.Context) (*runtime, error) {
	if m.pipeline == nil {
		return nil, ErrPipelineNotAttached
	}
	if err := m.pipeline.Attach(m); err != nil {
		return nil, errors.Join(ErrPipelineNotAttached, err)
	}

	codec := m.codec
	if codec == nil {
		c, err := LookupCodec(m.config.Codec)
		if err != nil {
			return nil, err
		}
		codec = c
	}

	if m.dialer == nil {
		return nil, ErrNoStore
	}

	managerID, err := m.newID()
	if err != nil {
		return nil, errors.Join(ErrTokenGeneration, err)
	}

	pool, err := m.dialer(ctx)
	if err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	if pool == nil {
		return nil, ErrNoStore
	}

	return &runtime{pool: pool, codec: codec, managerID: managerID}, nil
}

// Stop releases the pool and clears the local cache. Pool close errors are
// logged, not returned. Stopping a stopped manager is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	switch s := m.State(); s {
	case StateStopped:
		return nil
	case StateStarted:
	default:
		return errors.Join(ErrInvalidState, fmt.Errorf("stop from %s", s))
	}
	m.state.Store(int32(StateStopping))

	rt := m.rt.Swap(nil)
	if rt != nil {
		if err := rt.pool.Close(); err != nil {
			m.logger.DebugContext(ctx, "closing store pool", logger.Error(err))
		}
	}
	m.cache.purge()

	m.state.Store(int32(StateStopped))
	m.logger.InfoContext(ctx, "session manager stopped")
	return nil
}

func (m *Manager) running() (*runtime, error) {
	if m.State() != StateStarted {
		return nil, ErrNotStarted
	}
	rt := m.rt.Load()
	if rt == nil {
		return nil, ErrNotStarted
	}
	return rt, nil
}

func (m *Manager) withRoute(id string) string {
	route := m.config.Route
	if route == "" || strings.HasSuffix(id, "."+route) {
		return id
	}
	return id + "." + route
}

// Create reserves a fresh id in the store with SETNX and binds the new
// session to the request. A caller-supplied id is tried first; on collision
// generated ids are used until MaxCreateAttempts is exhausted.
//
// Only the placeholder is written. The session becomes visible to other
// instances after the first Save.
func (m *Manager) Create(ctx context.Context, id string) (_ *Session, err error) {
	rt, err := m.running()
	if err != nil {
		return nil, err
	}

	ctx, end := m.observe(ctx, "create")
	defer func() { end(err) }()

	s := m.NewSession()
	created := false

	err = kvstore.With(ctx, rt.pool, func(conn kvstore.Conn) error {
		for attempt := range m.config.MaxCreateAttempts {
			candidate := id
			if attempt > 0 || candidate == "" {
				next, err := m.newID()
				if err != nil {
					return errors.Join(ErrTokenGeneration, err)
				}
				candidate = next
			}
			candidate = m.withRoute(candidate)

			key := rt.key(candidate)
			ok, err := conn.SetNX(ctx, key, placeholder)
			if err != nil {
				return errors.Join(ErrStore, err)
			}
			if ok {
				// An unsaved reservation must not outlive an idle session.
				if ttl := m.config.MaxInactiveInterval; ttl > 0 {
					if err := conn.Expire(ctx, key, ttl); err != nil {
						return errors.Join(ErrStore, err)
					}
				}
				s.setID(candidate)
				created = true
				return nil
			}

			m.metrics.collisions.Inc()
			m.logger.DebugContext(ctx, "session id collision",
				logger.SessionID(candidate),
				logger.Attempt(attempt+1),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errors.Join(ErrIDCollision, fmt.Errorf("%d attempts", m.config.MaxCreateAttempts))
	}

	s.ResetDirtyTracking()
	requestContext(ctx).bind(s, s.ID(), PersistedFalse)
	m.cache.add(s.ID(), s)
	m.metrics.creates.Inc()

	m.logger.DebugContext(ctx, "session created", logger.SessionID(s.ID()))
	return s, nil
}

// Find returns the session for id. Within one request a loaded session or a
// miss is remembered in the request binding and answered from it. Placeholder
// and store errors are not remembered, so a later call reads the store again.
//
// Find returns ErrSessionNotFound for an empty or unknown id, and
// ErrPlaceholderObserved when the id has been reserved but not yet saved.
func (m *Manager) Find(ctx context.Context, id string) (_ *Session, err error) {
	rt, err := m.running()
	if err != nil {
		return nil, err
	}
	rc := requestContext(ctx)

	if id == "" {
		rc.reset()
		rc.setPersisted(PersistedFalse)
		return nil, ErrSessionNotFound
	}

	if s, ok := rc.lookup(id); ok {
		m.metrics.lookups.WithLabelValues(lookupContext).Inc()
		if s == nil {
			return nil, ErrSessionNotFound
		}
		return s, nil
	}

	ctx, end := m.observe(ctx, "find", attribute.String("session.id", id))
	defer func() {
		if errors.Is(err, ErrSessionNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	s, err := m.load(ctx, rt, id)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		m.metrics.lookups.WithLabelValues(lookupMiss).Inc()
		rc.bind(nil, id, PersistedUnknown)
		return nil, err
	case errors.Is(err, ErrPlaceholderObserved):
		m.metrics.lookups.WithLabelValues(lookupPlaceholder).Inc()
		m.logger.WarnContext(ctx, "session placeholder observed", logger.SessionID(id))
		return nil, err
	case err != nil:
		m.metrics.lookups.WithLabelValues(lookupError).Inc()
		return nil, err
	}

	m.metrics.lookups.WithLabelValues(lookupLoaded).Inc()
	rc.bind(s, id, PersistedTrue)
	m.cache.add(id, s)
	return s, nil
}

func (m *Manager) load(ctx context.Context, rt *runtime, id string) (*Session, error) {
	var (
		data  []byte
		found bool
	)
	err := kvstore.With(ctx, rt.pool, func(conn kvstore.Conn) error {
		v, err := conn.Get(ctx, rt.key(id))
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	if bytes.Equal(data, placeholder) {
		return nil, errors.Join(ErrPlaceholderObserved, fmt.Errorf("session %q", id))
	}

	s, err := rt.codec.Decode(data, m)
	if err != nil {
		return nil, errors.Join(ErrCodec, err)
	}
	s.prepareLoaded(id, m.config.MaxInactiveInterval)

	m.logger.DebugContext(ctx, "session loaded", logger.SessionID(id))
	return s, nil
}

// Save persists s. The payload is written when the session is dirty or not
// yet known to be persisted; the expiry is refreshed in every case.
func (m *Manager) Save(ctx context.Context, s *Session) (err error) {
	if s == nil {
		return ErrNilSession
	}
	rt, err := m.running()
	if err != nil {
		return err
	}
	rc := requestContext(ctx)

	snap, dirty, version := s.snapshot()
	id := snap.id
	if id == "" {
		return errors.Join(ErrNilSession, errors.New("session has no id"))
	}
	write := dirty || !rc.isPersisted(id)

	ctx, end := m.observe(ctx, "save",
		attribute.String("session.id", id),
		attribute.Bool("session.write", write),
	)
	defer func() { end(err) }()

	var payload []byte
	if write {
		payload, err = rt.codec.Encode(snap)
		if err != nil {
			return errors.Join(ErrCodec, err)
		}
	}

	key := rt.key(id)
	ttl := snap.maxInactive
	err = kvstore.With(ctx, rt.pool, func(conn kvstore.Conn) error {
		if write {
			if err := conn.Set(ctx, key, payload); err != nil {
				return err
			}
		}
		if ttl > 0 {
			return conn.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrStore, err)
	}

	s.markClean(version)
	if rc.ID() == id && rc.Session() == s {
		rc.setPersisted(PersistedTrue)
	}
	m.cache.add(id, s)
	m.metrics.saves.WithLabelValues(strconv.FormatBool(write)).Inc()

	m.logger.DebugContext(ctx, "session saved",
		logger.SessionID(id),
		logger.StoreKey(string(key)),
		slog.Bool("written", write),
		slog.Duration("ttl", ttl),
	)
	return nil
}

// Add is Save under the name the store contract uses.
func (m *Manager) Add(ctx context.Context, s *Session) error {
	return m.Save(ctx, s)
}

// Remove deletes s from the store and the local cache. The request binding
// is left untouched.
func (m *Manager) Remove(ctx context.Context, s *Session) error {
	return m.RemoveWithUpdate(ctx, s, false)
}

// RemoveWithUpdate deletes s and, when update is set, invalidates it and
// unbinds it from the request.
func (m *Manager) RemoveWithUpdate(ctx context.Context, s *Session, update bool) (err error) {
	if s == nil {
		return ErrNilSession
	}
	rt, err := m.running()
	if err != nil {
		return err
	}
	id := s.ID()

	ctx, end := m.observe(ctx, "remove", attribute.String("session.id", id))
	defer func() { end(err) }()

	m.cache.remove(id)
	err = kvstore.With(ctx, rt.pool, func(conn kvstore.Conn) error {
		return conn.Del(ctx, rt.key(id))
	})
	if err != nil {
		return errors.Join(ErrStore, err)
	}

	if update {
		s.Invalidate()
		if rc := requestContext(ctx); rc.ID() == id {
			rc.reset()
		}
	}
	m.metrics.removes.Inc()

	m.logger.DebugContext(ctx, "session removed", logger.SessionID(id), logger.StoreKey(string(rt.key(id))))
	return nil
}

// Size returns the number of keys in the store's database.
func (m *Manager) Size(ctx context.Context) (n int64, err error) {
	rt, err := m.running()
	if err != nil {
		return 0, err
	}
	ctx, end := m.observe(ctx, "size")
	defer func() { end(err) }()

	err = kvstore.With(ctx, rt.pool, func(conn kvstore.Conn) error {
		var err error
		n, err = conn.DBSize(ctx)
		return err
	})
	if err != nil {
		return 0, errors.Join(ErrStore, err)
	}
	return n, nil
}

// Keys returns every key in the store's database, session or not.
func (m *Manager) Keys(ctx context.Context) (keys []string, err error) {
	rt, err := m.running()
	if err != nil {
		return nil, err
	}
	ctx, end := m.observe(ctx, "keys")
	defer func() { end(err) }()

	err = kvstore.With(ctx, rt.pool, func(conn kvstore.Conn) error {
		var err error
		keys, err = conn.Keys(ctx, "*")
		return err
	})
	if err != nil {
		return nil, errors.Join(ErrStore, err)
	}
	return keys, nil
}

// Clear flushes the store's whole database, including keys that do not
// belong to this manager.
func (m *Manager) Clear(ctx context.Context) (err error) {
	rt, err := m.running()
	if err != nil {
		return err
	}
	ctx, end := m.observe(ctx, "clear")
	defer func() { end(err) }()

	err = kvstore.With(ctx, rt.pool, func(conn kvstore.Conn) error {
		return conn.FlushDB(ctx)
	})
	if err != nil {
		return errors.Join(ErrStore, err)
	}
	m.cache.purge()

	m.logger.InfoContext(ctx, "session store cleared")
	return nil
}

// AfterRequest clears the request binding. The pipeline calls it once the
// response is complete, whatever the outcome.
func (m *Manager) AfterRequest(ctx context.Context) {
	rc := requestContext(ctx)
	if rc == nil {
		return
	}
	if id := rc.ID(); id != "" {
		m.logger.DebugContext(ctx, "request finished",
			logger.SessionID(id),
			slog.String("persisted", rc.Persisted().String()),
		)
	}
	rc.reset()
}

// Current returns the session bound to the request, or nil.
func (m *Manager) Current(ctx context.Context) *Session {
	return requestContext(ctx).Session()
}

// IsSessionLoaded reports whether the request has a valid bound session.
func (m *Manager) IsSessionLoaded(ctx context.Context) bool {
	return m.Current(ctx).IsValid()
}

// Ensure returns the request's valid session, creating one and sending its
// token to the client when there is none.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter) (*Session, error) {
	if s := m.Current(ctx); s.IsValid() {
		s.Access()
		return s, nil
	}
	if m.transport == nil {
		return nil, ErrNoTransport
	}

	s, err := m.Create(ctx, "")
	if err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, s.ID(), s.MaxInactiveInterval()); err != nil {
		// Drop the reservation, the client will never present this id.
		if rmErr := m.RemoveWithUpdate(ctx, s, true); rmErr != nil {
			m.logger.DebugContext(ctx, "removing orphaned session", logger.Error(rmErr))
		}
		return nil, err
	}
	return s, nil
}

// Invalidate removes the request's session from the store and clears the
// client token.
func (m *Manager) Invalidate(ctx context.Context, w http.ResponseWriter) error {
	if s := m.Current(ctx); s != nil {
		if err := m.RemoveWithUpdate(ctx, s, true); err != nil {
			return err
		}
	}
	if m.transport == nil {
		return ErrNoTransport
	}
	return m.transport.ClearToken(w)
}
