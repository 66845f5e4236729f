package kvstore

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Conn,Pool

// Conn is a single connection to a key-value store.
type Conn interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores value under key, dropping any expiration the key had.
	Set(ctx context.Context, key, value []byte) error

	// SetNX stores value only if key does not exist.
	// It reports whether the value was written.
	SetNX(ctx context.Context, key, value []byte) (bool, error)

	// Del removes key. Missing keys are not an error.
	Del(ctx context.Context, key []byte) error

	// Expire sets the time to live of key. Missing keys are not an error.
	Expire(ctx context.Context, key []byte, ttl time.Duration) error

	// FlushDB removes every key of the selected database.
	FlushDB(ctx context.Context) error

	// DBSize returns the number of keys in the selected database.
	DBSize(ctx context.Context) (int64, error)

	// Keys returns all keys matching a glob-style pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Pool manages store connections.
type Pool interface {
	// Acquire takes a connection from the pool, dialing a new one if needed.
	Acquire(ctx context.Context) (Conn, error)

	// Release returns conn to the pool. A broken connection is discarded.
	Release(conn Conn, broken bool)

	// Close tears the pool down.
	Close() error
}

// With runs fn with a connection acquired from pool and releases it afterwards.
// The connection is released as broken when fn returns an error or panics.
func With(ctx context.Context, pool Pool, fn func(Conn) error) (err error) {
	if pool == nil {
		return ErrNilPool
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}

	broken := true
	defer func() {
		pool.Release(conn, broken)
	}()

	err = fn(conn)
	broken = err != nil
	return err
}
