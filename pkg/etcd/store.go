package etcd

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
)

var _ kvstore.Pool = (*Pool)(nil)

// Pool exposes a shared etcd client as a kvstore.Pool.
type Pool struct {
	client    *clientv3.Client
	namespace string
	closed    atomic.Bool
	broken    atomic.Int64
}

// Connect dials etcd and verifies that the first endpoint answers.
func Connect(ctx context.Context, cfg Config) (*clientv3.Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Context:     ctx,
	})
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if _, err := client.Status(ctx, cfg.Endpoints[0]); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnect, err)
	}
	return client, nil
}

// NewPool wraps client. Keys are stored below namespace.
func NewPool(client *clientv3.Client, namespace string) (*Pool, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	return &Pool{client: client, namespace: namespace}, nil
}

// Dialer returns a lazy pool constructor for the session manager.
func Dialer(cfg Config) func(ctx context.Context) (kvstore.Pool, error) {
	return func(ctx context.Context) (kvstore.Pool, error) {
		client, err := Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pool, err := NewPool(client, cfg.Namespace)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return pool, nil
	}
}

// Acquire returns a view over the shared client.
func (p *Pool) Acquire(ctx context.Context) (kvstore.Conn, error) {
	if p.closed.Load() {
		return nil, kvstore.ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &conn{client: p.client, namespace: p.namespace}, nil
}

// Release only counts broken connections; the gRPC channel heals itself.
func (p *Pool) Release(_ kvstore.Conn, broken bool) {
	if broken {
		p.broken.Add(1)
	}
}

// Broken returns how many connections were released after a failure.
func (p *Pool) Broken() int64 {
	return p.broken.Load()
}

// Close closes the client.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.client.Close()
}

type conn struct {
	client    *clientv3.Client
	namespace string
}

func (c *conn) key(k []byte) string {
	return c.namespace + string(k)
}

func (c *conn) Get(ctx context.Context, key []byte) ([]byte, error) {
	resp, err := c.client.Get(ctx, c.key(key))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, kvstore.ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

// Set writes without a lease, detaching any TTL like a Redis SET.
func (c *conn) Set(ctx context.Context, key, value []byte) error {
	_, err := c.client.Put(ctx, c.key(key), string(value))
	return err
}

func (c *conn) SetNX(ctx context.Context, key, value []byte) (bool, error) {
	k := c.key(key)
	resp, err := c.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(k), "=", 0)).
		Then(clientv3.OpPut(k, string(value))).
		Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

func (c *conn) Del(ctx context.Context, key []byte) error {
	_, err := c.client.Delete(ctx, c.key(key))
	return err
}

// Expire grants a lease and moves the key onto it. The previous lease, if
// any, is revoked afterwards so leases do not pile up.
func (c *conn) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	k := c.key(key)
	if ttl <= 0 {
		return c.Del(ctx, key)
	}

	current, err := c.client.Get(ctx, k)
	if err != nil {
		return err
	}
	if len(current.Kvs) == 0 {
		return nil
	}
	oldLease := clientv3.LeaseID(current.Kvs[0].Lease)

	lease, err := c.client.Grant(ctx, leaseSeconds(ttl))
	if err != nil {
		return err
	}

	resp, err := c.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(k), ">", 0)).
		Then(clientv3.OpPut(k, "", clientv3.WithIgnoreValue(), clientv3.WithLease(lease.ID))).
		Commit()
	if err != nil {
		return err
	}
	if !resp.Succeeded {
		// Key vanished between GET and TXN.
		_, _ = c.client.Revoke(ctx, lease.ID)
		return nil
	}

	if oldLease != clientv3.NoLease && oldLease != lease.ID {
		_, _ = c.client.Revoke(ctx, oldLease)
	}
	return nil
}

// FlushDB deletes every key in the namespace.
func (c *conn) FlushDB(ctx context.Context) error {
	_, err := c.client.Delete(ctx, c.namespace, clientv3.WithPrefix())
	return err
}

func (c *conn) DBSize(ctx context.Context) (int64, error) {
	resp, err := c.client.Get(ctx, c.namespace, clientv3.WithPrefix(), clientv3.WithCountOnly())
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *conn) Keys(ctx context.Context, pattern string) ([]string, error) {
	resp, err := c.client.Get(ctx, c.namespace, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, err
	}
	return filterKeys(c.namespace, pattern, resp.Kvs), nil
}

func filterKeys(namespace, pattern string, kvs []*mvccpb.KeyValue) []string {
	keys := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		k := strings.TrimPrefix(string(kv.Key), namespace)
		if kvstore.Match(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// leaseSeconds rounds ttl up to whole seconds; etcd leases have second granularity.
func leaseSeconds(ttl time.Duration) int64 {
	return max(int64(math.Ceil(ttl.Seconds())), 1)
}
