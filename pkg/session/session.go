package session

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"
)

// State is the serializable form of a Session. Codecs encode and decode it.
type State struct {
	ID             string         `json:"id" yaml:"id"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at" yaml:"last_accessed_at"`
	MaxInactive    int64          `json:"max_inactive" yaml:"max_inactive"` // seconds
	Attributes     map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Session represents one user's server-side state.
//
// A Session is safe for concurrent use. Every attribute or metadata change
// marks it dirty; the manager clears the flag after a successful persist or a
// fresh load.
type Session struct {
	mu sync.RWMutex

	id             string
	attributes     map[string]any
	createdAt      time.Time
	lastAccessedAt time.Time
	maxInactive    time.Duration

	isNew   bool
	isValid bool
	dirty   bool
	// version is bumped on every mutation so a save can tell whether the
	// session changed while its snapshot was being written.
	version uint64
}

// NewSession creates an empty, valid session with the given inactivity window.
func NewSession(maxInactive time.Duration) *Session {
	now := time.Now()
	return &Session{
		attributes:     make(map[string]any),
		createdAt:      now,
		lastAccessedAt: now,
		maxInactive:    maxInactive,
		isNew:          true,
		isValid:        true,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// LastAccessedAt returns the time of the last access.
func (s *Session) LastAccessedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessedAt
}

// MaxInactiveInterval returns how long the session may stay idle before the
// store evicts it. A non-positive value disables expiration.
func (s *Session) MaxInactiveInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxInactive
}

// SetMaxInactiveInterval changes the inactivity window and marks the session dirty.
func (s *Session) SetMaxInactiveInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxInactive = d
	s.touchDirty()
}

// IsNew reports whether the client has not yet seen this session.
func (s *Session) IsNew() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNew
}

// IsValid reports whether the session is usable.
func (s *Session) IsValid() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isValid
}

// Invalidate marks the session unusable. The HTTP middleware removes
// invalidated sessions from the store at the end of the request.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isValid = false
	s.touchDirty()
}

// IsDirty reports whether the session changed since it was last persisted or loaded.
func (s *Session) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkDirty forces the next save to write the session. Use it after mutating
// an attribute value in place (a map or slice stored in the session).
func (s *Session) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchDirty()
}

// ResetDirtyTracking clears the dirty flag.
func (s *Session) ResetDirtyTracking() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// Access refreshes the last access time. It does not mark the session dirty:
// access alone is persisted through the TTL refresh, not a rewrite.
func (s *Session) Access() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = time.Now()
}

// Get retrieves an attribute.
func (s *Session) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.attributes[key]
	return val, ok
}

// GetString retrieves a string attribute.
func (s *Session) GetString(key string) (string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves an integer attribute. Numbers decoded by a codec arrive
// as json.Number or float64 and are converted.
func (s *Session) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// GetBool retrieves a bool attribute.
func (s *Session) GetBool(key string) (bool, bool) {
	val, ok := s.Get(key)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// Set stores an attribute and marks the session dirty.
func (s *Session) Set(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attributes == nil {
		s.attributes = make(map[string]any)
	}
	s.attributes[key] = value
	s.touchDirty()
}

// Delete removes an attribute. Removing a missing key leaves the session clean.
func (s *Session) Delete(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attributes[key]; !ok {
		return
	}
	delete(s.attributes, key)
	s.touchDirty()
}

// Clear removes all attributes.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.attributes) == 0 {
		return
	}
	s.attributes = make(map[string]any)
	s.touchDirty()
}

// Keys returns the attribute names in sorted order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.attributes))
}

// Len returns the number of attributes.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attributes)
}

// State returns a copy of the serializable state.
// Attribute values are copied shallowly.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Restore replaces the session state with st. Codecs call it while decoding;
// it does not touch the dirty flag, the manager resets it after a load.
func (s *Session) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = st.ID
	s.createdAt = st.CreatedAt
	s.lastAccessedAt = st.LastAccessedAt
	s.maxInactive = time.Duration(st.MaxInactive) * time.Second
	s.attributes = make(map[string]any, len(st.Attributes))
	maps.Copy(s.attributes, st.Attributes)
}

// snapshot returns an independent copy of the session together with the
// dirty flag and mutation version observed at the same instant.
func (s *Session) snapshot() (snap *Session, dirty bool, version uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap = &Session{
		id:             s.id,
		attributes:     maps.Clone(s.attributes),
		createdAt:      s.createdAt,
		lastAccessedAt: s.lastAccessedAt,
		maxInactive:    s.maxInactive,
		isNew:          s.isNew,
		isValid:        s.isValid,
	}
	if snap.attributes == nil {
		snap.attributes = make(map[string]any)
	}
	return snap, s.dirty, s.version
}

// markClean clears the dirty flag unless the session changed after version.
func (s *Session) markClean(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == version {
		s.dirty = false
	}
}

// setID assigns the identifier; used during creation and loading.
func (s *Session) setID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// prepareLoaded applies the post-load flag reset.
func (s *Session) prepareLoaded(id string, maxInactive time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.isNew = false
	s.isValid = true
	s.maxInactive = maxInactive
	s.lastAccessedAt = time.Now()
	s.dirty = false
}

func (s *Session) stateLocked() State {
	return State{
		ID:             s.id,
		CreatedAt:      s.createdAt,
		LastAccessedAt: s.lastAccessedAt,
		MaxInactive:    int64(s.maxInactive / time.Second),
		Attributes:     maps.Clone(s.attributes),
	}
}

func (s *Session) touchDirty() {
	s.dirty = true
	s.version++
}
