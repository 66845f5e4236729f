package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
)

// conn adapts a dedicated go-redis connection to kvstore.Conn.
type conn struct {
	cn        *redis.Conn
	scanBatch int64
}

// Get maps redis.Nil to kvstore.ErrNotFound.
func (c *conn) Get(ctx context.Context, key []byte) ([]byte, error) {
	val, err := c.cn.Get(ctx, string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kvstore.ErrNotFound
	}
	return val, err
}

// Set issues a plain SET, which also drops any TTL on the key.
func (c *conn) Set(ctx context.Context, key, value []byte) error {
	return c.cn.Set(ctx, string(key), value, 0).Err()
}

func (c *conn) SetNX(ctx context.Context, key, value []byte) (bool, error) {
	return c.cn.SetNX(ctx, string(key), value, 0).Result()
}

func (c *conn) Del(ctx context.Context, key []byte) error {
	return c.cn.Del(ctx, string(key)).Err()
}

func (c *conn) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	return c.cn.Expire(ctx, string(key), ttl).Err()
}

// FlushDB clears ALL keys of the selected database, not only session keys.
func (c *conn) FlushDB(ctx context.Context) error {
	return c.cn.FlushDB(ctx).Err()
}

func (c *conn) DBSize(ctx context.Context) (int64, error) {
	return c.cn.DBSize(ctx).Result()
}

// Keys walks the keyspace with SCAN so a large database does not block the
// server the way KEYS would.
func (c *conn) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.cn.Scan(ctx, cursor, pattern, c.scanBatch).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	// SCAN may return a key more than once while the keyspace is rehashed.
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}
