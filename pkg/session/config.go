package session

import "time"

// Config holds session configuration
type Config struct {
	// MaxInactiveInterval is the idle time after which the store evicts a
	// session. Zero or negative disables expiration.
	MaxInactiveInterval time.Duration `env:"SESSION_MAX_INACTIVE_INTERVAL" envDefault:"30m"`

	// Codec is the name of a registered codec (see RegisterCodec).
	Codec string `env:"SESSION_CODEC" envDefault:"json"`

	// Route is appended to every new session id as ".<route>" so a load
	// balancer can keep a client on the same instance.
	Route string `env:"SESSION_ROUTE"`

	// IDFormat selects the identifier generator: "random" or "uuid".
	IDFormat string `env:"SESSION_ID_FORMAT" envDefault:"random"`

	// MaxCreateAttempts bounds the id collision retry loop.
	MaxCreateAttempts int `env:"SESSION_MAX_CREATE_ATTEMPTS" envDefault:"16"`

	// LocalCacheSize bounds the diagnostic id→session cache (0 disables it).
	LocalCacheSize int `env:"SESSION_LOCAL_CACHE_SIZE" envDefault:"1024"`

	// Transport selects how ids reach the client: "cookie", "header" or
	// "both" (header first, then cookie).
	Transport string `env:"SESSION_TRANSPORT" envDefault:"cookie"`

	// HeaderName is the header used by the header transport.
	HeaderName string `env:"SESSION_HEADER_NAME" envDefault:"X-Session-Token"`

	// CookieName is the name of the session cookie (default: "sid")
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	// SecureCookies enables the Secure flag on session cookies (recommended for production)
	SecureCookies bool `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		MaxInactiveInterval: 30 * time.Minute,
		Codec:               CodecJSON,
		IDFormat:            IDFormatRandom,
		MaxCreateAttempts:   16,
		LocalCacheSize:      1024,
		Transport:           TransportCookie,
		HeaderName:          DefaultHeaderName,
		CookieName:          "sid",
	}
}

// NewFromConfig creates a new Manager from the provided Config.
// The store dialer and the pipeline still come from options.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	configOpts := []Option{
		WithConfig(cfg),
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
