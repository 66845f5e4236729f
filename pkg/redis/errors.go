package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyHost                    = errors.New("empty redis host")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrPoolInit                     = errors.New("failed to initialize redis connection pool")
	ErrPoolExhausted                = errors.New("no redis connection became available")
)
