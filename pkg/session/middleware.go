package session

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/dmitrymomot/kvsession/pkg/logger"
)

// ErrorHandler writes the response for a request whose session could not be
// loaded.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware is the HTTP request pipeline. It binds a fresh RequestContext to
// every request, loads the session named by the client token, and after the
// handler returns saves a valid session or removes an invalidated one.
type Middleware struct {
	manager atomic.Pointer[Manager]
	onError ErrorHandler
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*Middleware)

// WithErrorHandler replaces the default error response.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(mw *Middleware) {
		if h != nil {
			mw.onError = h
		}
	}
}

// NewMiddleware creates an unattached pipeline. Pass it to the manager with
// WithPipeline; Start attaches it.
func NewMiddleware(opts ...MiddlewareOption) *Middleware {
	mw := &Middleware{onError: defaultErrorHandler}
	for _, opt := range opts {
		opt(mw)
	}
	return mw
}

// Attach implements Pipeline.
func (mw *Middleware) Attach(m *Manager) error {
	if m == nil {
		return errors.New("nil manager")
	}
	mw.manager.Store(m)
	return nil
}

// Handler wraps next with session handling.
func (mw *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := mw.manager.Load()
		if m == nil {
			mw.onError(w, r, ErrPipelineNotAttached)
			return
		}

		ctx := WithRequestContext(r.Context(), NewRequestContext())
		defer m.AfterRequest(ctx)

		if token, err := m.transport.GetToken(r); err == nil && token != "" {
			if _, err := m.Find(ctx, token); err != nil && !errors.Is(err, ErrSessionNotFound) {
				m.logger.ErrorContext(ctx, "loading session", logger.Error(err))
				mw.onError(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))

		mw.finish(ctx, m)
	})
}

// finish saves or removes the session bound to the request.
func (mw *Middleware) finish(ctx context.Context, m *Manager) {
	s := m.Current(ctx)
	if s == nil {
		return
	}
	if s.IsValid() {
		err := m.Save(ctx, s)
		if err == nil {
			return
		}
		m.logger.ErrorContext(ctx, "saving session", logger.SessionID(s.ID()), logger.Error(err))
		if requestContext(ctx).isPersisted(s.ID()) {
			return
		}
		// Never saved: drop the reservation so the client's token does not
		// keep pointing at a placeholder.
		if err := m.RemoveWithUpdate(ctx, s, true); err != nil {
			m.logger.ErrorContext(ctx, "removing unsaved session", logger.SessionID(s.ID()), logger.Error(err))
		}
		return
	}
	if err := m.Remove(ctx, s); err != nil {
		m.logger.ErrorContext(ctx, "removing invalid session", logger.SessionID(s.ID()), logger.Error(err))
	}
}

// RequireSession responds 401 unless the request carries a valid session.
// It must run inside Middleware.Handler.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.IsSessionLoaded(r.Context()) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureSession is a middleware that ensures a session exists.
// It must run inside Middleware.Handler.
func (m *Manager) EnsureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.Ensure(r.Context(), w); err != nil {
			m.logger.ErrorContext(r.Context(), "ensuring session", logger.Error(err))
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotStarted), errors.Is(err, ErrPipelineNotAttached):
		http.Error(w, "Session service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Session error", http.StatusInternalServerError)
	}
}
