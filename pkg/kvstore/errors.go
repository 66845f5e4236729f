package kvstore

import "errors"

var (
	// ErrNotFound is returned by Conn.Get when the key does not exist.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrPoolClosed is returned by Pool.Acquire once the pool has been closed.
	ErrPoolClosed = errors.New("kvstore: pool is closed")

	// ErrNilPool is returned by With when no pool is supplied.
	ErrNilPool = errors.New("kvstore: nil pool")
)
