package session

import "context"

// PersistedState records whether the bound session is known to be persisted.
type PersistedState uint8

const (
	// PersistedUnknown means nothing is known about the bound session yet.
	PersistedUnknown PersistedState = iota
	// PersistedTrue means the store holds the real payload of the bound session.
	PersistedTrue
	// PersistedFalse means the store holds at most the creation placeholder.
	PersistedFalse
)

func (p PersistedState) String() string {
	switch p {
	case PersistedTrue:
		return "persisted"
	case PersistedFalse:
		return "not_persisted"
	default:
		return "unknown"
	}
}

// RequestContext is the session binding of one in-flight request.
//
// It belongs to exactly one request and must not be shared between
// concurrent requests. The manager reads and updates it through the
// context.Context passed to every operation; AfterRequest clears it.
type RequestContext struct {
	session   *Session
	id        string
	bound     bool
	persisted PersistedState
}

// NewRequestContext returns an empty binding.
func NewRequestContext() *RequestContext {
	return &RequestContext{}
}

// Session returns the bound session, or nil.
func (rc *RequestContext) Session() *Session {
	if rc == nil {
		return nil
	}
	return rc.session
}

// ID returns the bound session id.
func (rc *RequestContext) ID() string {
	if rc == nil {
		return ""
	}
	return rc.id
}

// Persisted returns the persisted-state flag.
func (rc *RequestContext) Persisted() PersistedState {
	if rc == nil {
		return PersistedUnknown
	}
	return rc.persisted
}

// isPersisted reports whether id is bound and affirmatively persisted.
func (rc *RequestContext) isPersisted(id string) bool {
	return rc != nil && rc.bound && rc.id == id && rc.session != nil && rc.persisted == PersistedTrue
}

// lookup returns the binding for id, if any. A bound id with a nil session
// records a lookup that found nothing.
func (rc *RequestContext) lookup(id string) (*Session, bool) {
	if rc == nil || !rc.bound || rc.id != id {
		return nil, false
	}
	return rc.session, true
}

func (rc *RequestContext) bind(s *Session, id string, persisted PersistedState) {
	if rc == nil {
		return
	}
	rc.session = s
	rc.id = id
	rc.bound = true
	rc.persisted = persisted
}

func (rc *RequestContext) setPersisted(p PersistedState) {
	if rc == nil {
		return
	}
	rc.persisted = p
}

func (rc *RequestContext) reset() {
	if rc == nil {
		return
	}
	rc.session = nil
	rc.id = ""
	rc.bound = false
	rc.persisted = PersistedUnknown
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the binding attached to ctx.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok && rc != nil
}

// FromContext returns the session bound to the request carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	rc, ok := RequestContextFrom(ctx)
	if !ok || rc.session == nil {
		return nil, false
	}
	return rc.session, true
}

// MustFromContext returns the bound session or panics.
func MustFromContext(ctx context.Context) *Session {
	session, ok := FromContext(ctx)
	if !ok {
		panic("session: not found in context")
	}
	return session
}

func requestContext(ctx context.Context) *RequestContext {
	rc, _ := RequestContextFrom(ctx)
	return rc
}
