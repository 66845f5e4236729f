package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Transport names accepted by Config.Transport.
const (
	TransportCookie = "cookie"
	TransportHeader = "header"
	TransportBoth   = "both"
)

// DefaultHeaderName is the header HeaderTransport uses when none is given.
const DefaultHeaderName = "X-Session-Token"

// Transport moves the session id between client and server.
type Transport interface {
	// GetToken returns the id carried by r, or ErrSessionNotFound.
	GetToken(r *http.Request) (string, error)
	// SetToken hands id to the client. ttl <= 0 means no expiry hint.
	SetToken(w http.ResponseWriter, id string, ttl time.Duration) error
	// ClearToken tells the client to forget its id.
	ClearToken(w http.ResponseWriter) error
}

// transportFor builds the transport named by cfg.Transport.
func transportFor(cfg Config) (Transport, error) {
	cookie := func() Transport {
		return NewCookieTransport(cfg.CookieName, WithSecureCookie(cfg.SecureCookies))
	}
	header := func() Transport {
		return NewHeaderTransport(cfg.HeaderName)
	}

	switch strings.ToLower(cfg.Transport) {
	case "", TransportCookie:
		return cookie(), nil
	case TransportHeader:
		return header(), nil
	case TransportBoth:
		return NewCompositeTransport(header(), cookie()), nil
	default:
		return nil, fmt.Errorf("session: unknown transport %q", cfg.Transport)
	}
}

// HeaderTransport carries the id in a request/response header, for API
// clients that do not keep cookies.
type HeaderTransport struct {
	name   string
	prefix string
}

// HeaderOption configures a HeaderTransport.
type HeaderOption func(*HeaderTransport)

// WithHeaderPrefix sets the scheme prefix expected before the id.
// An empty prefix means the header holds the bare id.
func WithHeaderPrefix(prefix string) HeaderOption {
	return func(t *HeaderTransport) {
		t.prefix = prefix
	}
}

// NewHeaderTransport returns a transport using the named header with a
// "Bearer " prefix.
func NewHeaderTransport(name string, opts ...HeaderOption) *HeaderTransport {
	if name == "" {
		name = DefaultHeaderName
	}
	t := &HeaderTransport{name: http.CanonicalHeaderKey(name), prefix: "Bearer "}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HeaderTransport) GetToken(r *http.Request) (string, error) {
	id := strings.TrimSpace(strings.TrimPrefix(r.Header.Get(t.name), t.prefix))
	if id == "" {
		return "", ErrSessionNotFound
	}
	return id, nil
}

// SetToken writes the id and, when ttl > 0, an "<name>-Expires" header in
// RFC 3339.
func (t *HeaderTransport) SetToken(w http.ResponseWriter, id string, ttl time.Duration) error {
	h := w.Header()
	h.Set(t.name, t.prefix+id)
	if ttl > 0 {
		h.Set(t.name+"-Expires", time.Now().Add(ttl).UTC().Format(time.RFC3339))
	} else {
		h.Del(t.name + "-Expires")
	}
	return nil
}

func (t *HeaderTransport) ClearToken(w http.ResponseWriter) error {
	h := w.Header()
	h.Del(t.name)
	h.Del(t.name + "-Expires")
	return nil
}

// CompositeTransport reads the id from the first transport that has one and
// writes it through all of them.
type CompositeTransport struct {
	transports []Transport
}

// NewCompositeTransport combines transports in priority order. Nil entries
// are skipped.
func NewCompositeTransport(transports ...Transport) *CompositeTransport {
	t := &CompositeTransport{transports: make([]Transport, 0, len(transports))}
	for _, tr := range transports {
		if tr != nil {
			t.transports = append(t.transports, tr)
		}
	}
	return t
}

func (t *CompositeTransport) GetToken(r *http.Request) (string, error) {
	for _, tr := range t.transports {
		if id, err := tr.GetToken(r); err == nil && id != "" {
			return id, nil
		}
	}
	return "", ErrSessionNotFound
}

func (t *CompositeTransport) SetToken(w http.ResponseWriter, id string, ttl time.Duration) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.SetToken(w, id, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *CompositeTransport) ClearToken(w http.ResponseWriter) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.ClearToken(w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
