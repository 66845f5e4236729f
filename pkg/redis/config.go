package redis

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes how to reach the Redis server and how to pool connections.
type Config struct {
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"` // Host of the Redis server.
	Port     int           `env:"REDIS_PORT" envDefault:"6379"`      // Port of the Redis server.
	Database int           `env:"REDIS_DB" envDefault:"0"`           // Database is the logical database selected on every connection.
	Password string        `env:"REDIS_PASSWORD"`                    // Password is sent with AUTH when not empty.
	Timeout  time.Duration `env:"REDIS_TIMEOUT" envDefault:"2s"`     // Timeout applies to dialing, reads and writes.

	// ConnectionURL overrides Host, Port, Database and Password when set.
	// Format: "redis://:password@localhost:6379/0".
	ConnectionURL string `env:"REDIS_URL"`

	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`    // RetryAttempts is the number of connection attempts made by Connect.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`   // RetryInterval is the pause between connection attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // ConnectTimeout bounds the whole Connect call.

	PoolInitialCap  int           `env:"REDIS_POOL_INITIAL_CAP" envDefault:"1"`   // PoolInitialCap connections are dialed when the pool is created.
	PoolMaxIdle     int           `env:"REDIS_POOL_MAX_IDLE" envDefault:"8"`      // PoolMaxIdle is the number of idle connections kept around.
	PoolMaxCap      int           `env:"REDIS_POOL_MAX_CAP" envDefault:"32"`      // PoolMaxCap is the maximum number of open connections.
	PoolIdleTimeout time.Duration `env:"REDIS_POOL_IDLE_TIMEOUT" envDefault:"5m"` // PoolIdleTimeout closes connections idle for longer.
	ScanBatchSize   int           `env:"REDIS_SCAN_BATCH_SIZE" envDefault:"1000"` // ScanBatchSize is the COUNT hint used by KEYS emulation.
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            6379,
		Timeout:         2 * time.Second,
		RetryAttempts:   3,
		RetryInterval:   5 * time.Second,
		ConnectTimeout:  30 * time.Second,
		PoolInitialCap:  1,
		PoolMaxIdle:     8,
		PoolMaxCap:      32,
		PoolIdleTimeout: 5 * time.Minute,
		ScanBatchSize:   1000,
	}
}

// Options converts the configuration into go-redis client options.
// A non-zero Database makes go-redis issue SELECT on every new connection.
func (c Config) Options() (*redis.Options, error) {
	var opts *redis.Options
	if c.ConnectionURL != "" {
		parsed, err := redis.ParseURL(c.ConnectionURL)
		if err != nil {
			return nil, errors.Join(ErrFailedToParseRedisConnString, err)
		}
		opts = parsed
	} else {
		if c.Host == "" {
			return nil, ErrEmptyHost
		}
		opts = &redis.Options{
			Addr:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Password: c.Password,
			DB:       c.Database,
		}
	}

	if c.Timeout > 0 {
		opts.DialTimeout = c.Timeout
		opts.ReadTimeout = c.Timeout
		opts.WriteTimeout = c.Timeout
	}
	// Every pooled session connection pins one go-redis connection.
	if c.PoolMaxCap > opts.PoolSize {
		opts.PoolSize = c.PoolMaxCap
	}
	return opts, nil
}
