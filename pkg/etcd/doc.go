// Package etcd implements the kvstore contract on top of etcd v3.
//
// A namespace prefix plays the role of a Redis logical database: FLUSHDB,
// DBSIZE and KEYS act on every key below it. SETNX is a transaction guarded by
// CreateRevision == 0 and EXPIRE attaches a freshly granted lease to the key
// without touching its value.
//
// The etcd client multiplexes requests over a single gRPC connection, so the
// pool hands out lightweight views over a shared client and has nothing to
// discard when a command fails.
package etcd
