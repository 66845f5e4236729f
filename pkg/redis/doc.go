// Package redis connects the session store to a Redis server.
//
// The package wraps the go-redis client and adds:
//
//   - Connect, which retries the connection using the supplied configuration.
//   - Pool, a kvstore.Pool built on silenceper/pool that hands out dedicated
//     connections and discards the ones that failed.
//   - Dialer, the lazy constructor plugged into the session manager so that
//     the server is contacted only when the manager starts.
//   - Health-check helpers for liveness / readiness probes.
//
// Configuration is described by the Config struct whose fields can be
// populated from environment variables via github.com/caarlos0/env.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	manager := session.New(
//	    session.WithDialer(redis.Dialer(cfg)),
//	    session.WithPipeline(mw),
//	)
//
// The logical database is selected on every new connection when
// Config.Database is non-zero. Bulk commands (FLUSHDB, DBSIZE, KEYS) act on
// that whole database; keep session data in a database of its own.
//
// # Error Handling
//
//   - ErrFailedToParseRedisConnString – REDIS_URL could not be parsed
//   - ErrEmptyHost                    – neither REDIS_URL nor REDIS_HOST set
//   - ErrRedisNotReady                – every connection attempt failed
//   - ErrPoolInit                     – the pool could not be created
//   - ErrHealthcheckFailed            – ping failed
package redis
