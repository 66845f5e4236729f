package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrymomot/kvsession/pkg/logger"
)

type config struct {
	addr              string
	readTimeout       time.Duration
	readHeaderTimeout time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
	server            *http.Server
	logger            *slog.Logger
	lifecycles        []Lifecycle
}

func defaultConfig() *config {
	return &config{
		addr:            ":8080",
		shutdownTimeout: 5 * time.Second,
	}
}

// Server runs an http.Server together with the components it depends on.
type Server struct {
	cfg *config

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	ready    chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

// New returns a configured Server.
func New(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Server{cfg: cfg, ready: make(chan struct{})}
}

// Ready is closed once the listener is open.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or "" before Ready.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the registered lifecycles, opens the listener and serves until
// ctx is done, SIGINT/SIGTERM arrives or Shutdown is called. Lifecycles are
// stopped after the server has drained. A server runs at most once.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	srv, err := s.prepare(handler)
	if err != nil {
		return errors.Join(ErrStart, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	started, err := startAll(ctx, s.cfg.lifecycles)
	if err != nil {
		s.stopLifecycles(started)
		return errors.Join(ErrStart, err)
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		s.stopLifecycles(started)
		return errors.Join(ErrStart, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	log := s.cfg.logger
	log.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var serveErr error
	select {
	case <-ctx.Done():
		log.InfoContext(ctx, "context done, shutting down")
	case v := <-sig:
		log.InfoContext(ctx, "signal received, shutting down", slog.String("signal", v.String()))
	case serveErr = <-errCh:
	}

	if serveErr == nil {
		if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.ErrorContext(ctx, "http server shutdown", logger.Error(err))
		}
		serveErr = <-errCh
	}

	s.stopLifecycles(started)
	log.InfoContext(ctx, "http server stopped")

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, serveErr)
	}
	return nil
}

// prepare claims the server for a single run and applies the configured
// address and timeouts. Values already set on a WithServer instance win.
func (s *Server) prepare(handler http.Handler) (*http.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil, ErrAlreadyRunning
	}

	cfg := s.cfg
	srv := cfg.server
	if srv == nil {
		srv = &http.Server{}
	}
	if srv.Addr == "" {
		srv.Addr = cfg.addr
	}
	setIfZero(&srv.ReadTimeout, cfg.readTimeout)
	setIfZero(&srv.ReadHeaderTimeout, cfg.readHeaderTimeout)
	setIfZero(&srv.WriteTimeout, cfg.writeTimeout)
	setIfZero(&srv.IdleTimeout, cfg.idleTimeout)
	srv.Handler = handler

	s.srv = srv
	return srv, nil
}

func setIfZero(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

// Shutdown drains the server within the configured timeout. Calls after the
// first return the first result. Calling it before Run is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.shutdownErr = errors.Join(ErrShutdown, err)
		}
	})
	return s.shutdownErr
}

func (s *Server) stopLifecycles(started []Lifecycle) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.shutdownTimeout)
	defer cancel()
	for _, err := range stopAll(ctx, started) {
		s.cfg.logger.ErrorContext(ctx, "stopping component", logger.Error(err))
	}
}
