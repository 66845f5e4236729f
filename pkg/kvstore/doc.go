// Package kvstore defines the key-value store contract the session manager is
// written against, together with the scoped connection acquisition helper.
//
// A Pool hands out Conn values. Every Conn exposes the small command set a
// session store needs (GET, SET, SETNX, DEL, EXPIRE, FLUSHDB, DBSIZE, KEYS).
// Keys and values are opaque byte strings.
//
// # Scoped acquisition
//
// Callers never pair Acquire and Release by hand. They use With, which
// releases the connection on every exit path and tags it as broken when the
// callback fails, so the pool can discard it instead of handing a possibly
// corrupt connection to the next caller:
//
//	err := kvstore.With(ctx, pool, func(conn kvstore.Conn) error {
//	    ok, err := conn.SetNX(ctx, key, []byte("null"))
//	    ...
//	})
//
// # Backends
//
//   - github.com/dmitrymomot/kvsession/pkg/redis   – Redis via go-redis
//   - github.com/dmitrymomot/kvsession/pkg/etcd    – etcd v3
//   - github.com/dmitrymomot/kvsession/pkg/kvstore/memory – in-process, go-cache
//
// # Error Handling
//
//   - ErrNotFound   – GET on a missing key
//   - ErrPoolClosed – Acquire after Close
package kvstore
