package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
)

// Connect establishes a connection to a Redis server using the provided configuration.
// It attempts to connect multiple times based on the RetryAttempts config value,
// with a delay between attempts specified by RetryInterval.
//
// Returns:
//   - *redis.Client: A connected Redis client if successful
//   - error: ErrFailedToParseRedisConnString if the connection URL is invalid,
//     ErrEmptyHost if neither a URL nor a host is configured,
//     ErrRedisNotReady if all connection attempts fail
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	attempts := max(cfg.RetryAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		client := redis.NewClient(opts)

		// Make sure the server answers before handing the client out.
		lastErr = client.Ping(ctx).Err()
		if lastErr == nil {
			return client, nil
		}

		_ = client.Close()
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// Dialer returns a function that connects to Redis and wraps the client in a
// connection pool. It matches the dialer signature expected by the session
// manager, so the store is only contacted when the manager starts.
func Dialer(cfg Config) func(ctx context.Context) (kvstore.Pool, error) {
	return func(ctx context.Context) (kvstore.Pool, error) {
		client, err := Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pool, err := NewPool(client, cfg)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return pool, nil
	}
}
