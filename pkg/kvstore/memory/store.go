// Package memory provides an in-process kvstore backend on top of go-cache.
// It honours key TTLs natively and is meant for tests, local development and
// single-instance deployments where sessions do not need to outlive the process.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
)

var _ kvstore.Pool = (*Store)(nil)

// Stats holds connection bookkeeping counters.
type Stats struct {
	Acquired int64
	Released int64
	Broken   int64
}

// Store is an in-memory key-value store that also acts as its own pool.
type Store struct {
	// go-cache locks per call only; compound commands (EXPIRE) need their own.
	mu     sync.RWMutex
	items  *gocache.Cache
	closed atomic.Bool

	acquired atomic.Int64
	released atomic.Int64
	broken   atomic.Int64
}

// New creates a store that purges expired keys every cleanupInterval.
// A non-positive interval disables the janitor; expired keys are still
// invisible to readers.
func New(cleanupInterval time.Duration) *Store {
	return &Store{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Acquire returns a connection bound to the store.
func (s *Store) Acquire(ctx context.Context) (kvstore.Conn, error) {
	if s.closed.Load() {
		return nil, kvstore.ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.acquired.Add(1)
	return &conn{store: s}, nil
}

// Release returns a connection. Broken connections are only counted; there is
// no transport to discard.
func (s *Store) Release(c kvstore.Conn, broken bool) {
	if c == nil {
		return
	}
	s.released.Add(1)
	if broken {
		s.broken.Add(1)
	}
}

// Close marks the store closed and drops all keys.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.items.Flush()
	return nil
}

// Stats returns a snapshot of the connection counters.
func (s *Store) Stats() Stats {
	return Stats{
		Acquired: s.acquired.Load(),
		Released: s.released.Load(),
		Broken:   s.broken.Load(),
	}
}

// TTL returns the remaining time to live of key.
// The second result is false when the key is missing or has no expiration.
func (s *Store) TTL(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exp, ok := s.items.GetWithExpiration(key)
	if !ok || exp.IsZero() {
		return 0, false
	}
	return time.Until(exp), true
}

type conn struct {
	store *Store
}

func (c *conn) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	v, ok := c.store.items.Get(string(key))
	c.store.mu.RUnlock()
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return clone(v.([]byte)), nil
}

func (c *conn) Set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.items.Set(string(key), clone(value), gocache.NoExpiration)
	return nil
}

func (c *conn) SetNX(ctx context.Context, key, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	// Add fails when an unexpired item already exists.
	if err := c.store.items.Add(string(key), clone(value), gocache.NoExpiration); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *conn) Del(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.items.Delete(string(key))
	return nil
}

func (c *conn) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	k := string(key)
	v, ok := c.store.items.Get(k)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		// Redis deletes keys given a non-positive TTL.
		c.store.items.Delete(k)
		return nil
	}
	return c.store.items.Replace(k, v, ttl)
}

func (c *conn) FlushDB(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.items.Flush()
	return nil
}

func (c *conn) DBSize(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	// Items skips expired entries the janitor has not purged yet.
	return int64(len(c.store.items.Items())), nil
}

func (c *conn) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	items := c.store.items.Items()
	c.store.mu.RUnlock()

	keys := make([]string, 0, len(items))
	for k := range items {
		if kvstore.Match(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
