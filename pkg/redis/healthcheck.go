package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/kvsession/pkg/kvstore"
)

// Healthcheck returns a probe that pings the server through client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := client.Ping(ctx).Result(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// PoolHealthcheck returns a probe that borrows a pooled connection and pings
// the server with it. A failed ping discards the connection.
func PoolHealthcheck(p *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		err := kvstore.With(ctx, p, func(c kvstore.Conn) error {
			return c.(*conn).cn.Ping(ctx).Err()
		})
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
