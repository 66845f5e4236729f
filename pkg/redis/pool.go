package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/silenceper/pool"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
)

var _ kvstore.Pool = (*Pool)(nil)

// Pool hands out dedicated Redis connections.
// Healthy connections go back to the idle set; broken ones are closed so the
// next Acquire dials a fresh one.
//
// At most PoolMaxCap connections are checked out at once. Callers over the
// limit wait for a slot until their context is done.
type Pool struct {
	client    *redis.Client
	conns     pool.Pool
	slots     *semaphore.Weighted
	scanBatch int64
}

// NewPool creates a connection pool on top of client. The pool takes
// ownership of the client and closes it in Close.
func NewPool(client *redis.Client, cfg Config) (*Pool, error) {
	maxCap := max(cfg.PoolMaxCap, 1)
	maxIdle := min(max(cfg.PoolMaxIdle, 1), maxCap)
	initialCap := min(max(cfg.PoolInitialCap, 0), maxIdle)

	conns, err := pool.NewChannelPool(&pool.Config{
		InitialCap:  initialCap,
		MaxIdle:     maxIdle,
		MaxCap:      maxCap,
		IdleTimeout: cfg.PoolIdleTimeout,
		Factory: func() (any, error) {
			cn := client.Conn()
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout(cfg))
			defer cancel()
			if err := cn.Ping(ctx).Err(); err != nil {
				_ = cn.Close()
				return nil, err
			}
			return cn, nil
		},
		Close: func(v any) error {
			return v.(*redis.Conn).Close()
		},
		Ping: func(v any) error {
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout(cfg))
			defer cancel()
			return v.(*redis.Conn).Ping(ctx).Err()
		},
	})
	if err != nil {
		return nil, errors.Join(ErrPoolInit, err)
	}

	batch := int64(cfg.ScanBatchSize)
	if batch <= 0 {
		batch = 1000
	}

	return &Pool{
		client:    client,
		conns:     conns,
		slots:     semaphore.NewWeighted(int64(maxCap)),
		scanBatch: batch,
	}, nil
}

// Acquire takes a connection from the pool, waiting for a free slot while
// PoolMaxCap connections are checked out.
func (p *Pool) Acquire(ctx context.Context) (kvstore.Conn, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, errors.Join(ErrPoolExhausted, err)
	}
	// Open connections never exceed checked-out plus idle ones, so with a
	// slot held Get either reuses an idle connection or dials a new one.
	v, err := p.conns.Get()
	if err != nil {
		p.slots.Release(1)
		if errors.Is(err, pool.ErrClosed) {
			return nil, kvstore.ErrPoolClosed
		}
		return nil, err
	}
	return &conn{cn: v.(*redis.Conn), scanBatch: p.scanBatch}, nil
}

// Release puts a healthy connection back and closes a broken one.
func (p *Pool) Release(c kvstore.Conn, broken bool) {
	rc, ok := c.(*conn)
	if !ok || rc == nil {
		return
	}
	defer p.slots.Release(1)
	if broken {
		_ = p.conns.Close(rc.cn)
		return
	}
	if err := p.conns.Put(rc.cn); err != nil {
		_ = rc.cn.Close()
	}
}

// Len returns the number of idle connections.
func (p *Pool) Len() int {
	return p.conns.Len()
}

// Client returns the underlying go-redis client.
func (p *Pool) Client() *redis.Client {
	return p.client
}

// Close closes every pooled connection and the client itself.
func (p *Pool) Close() error {
	p.conns.Release()
	return p.client.Close()
}

func dialTimeout(cfg Config) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 5 * time.Second
}
