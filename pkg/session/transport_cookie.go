package session

import (
	"net/http"
	"time"
)

// CookieTransport implements Transport using cookies
type CookieTransport struct {
	name     string
	path     string
	domain   string
	secure   bool
	sameSite http.SameSite
}

// CookieOption is a functional option for CookieTransport
type CookieOption func(*CookieTransport)

// WithSecureCookie sets the Secure flag (recommended for production)
func WithSecureCookie(secure bool) CookieOption {
	return func(t *CookieTransport) {
		t.secure = secure
	}
}

// WithCookiePath sets the cookie path (default: "/")
func WithCookiePath(path string) CookieOption {
	return func(t *CookieTransport) {
		t.path = path
	}
}

// WithCookieDomain sets the cookie domain
func WithCookieDomain(domain string) CookieOption {
	return func(t *CookieTransport) {
		t.domain = domain
	}
}

// WithSameSite sets the SameSite mode (default: Lax)
func WithSameSite(mode http.SameSite) CookieOption {
	return func(t *CookieTransport) {
		t.sameSite = mode
	}
}

// NewCookieTransport creates a new cookie-based transport
func NewCookieTransport(name string, opts ...CookieOption) *CookieTransport {
	if name == "" {
		name = "sid"
	}
	t := &CookieTransport{
		name:     name,
		path:     "/",
		sameSite: http.SameSiteLaxMode, // CSRF protection
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetToken extracts the session token from the cookie
func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	c, err := r.Cookie(t.name)
	if err != nil || c.Value == "" {
		return "", ErrSessionNotFound
	}
	return c.Value, nil
}

// SetToken stores the session token in a cookie. A non-positive ttl makes
// it a browser-session cookie.
func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	c := t.cookie(token)
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, c)
	return nil
}

// ClearToken removes the session cookie
func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	c := t.cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
	return nil
}

func (t *CookieTransport) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     t.name,
		Value:    value,
		Path:     t.path,
		Domain:   t.domain,
		Secure:   t.secure,
		HttpOnly: true,
		SameSite: t.sameSite,
	}
}
