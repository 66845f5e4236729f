// Package config reads application settings from environment variables into
// tagged structs.
//
// Structs describe their variables with caarlos0/env tags:
//
//	type Config struct {
//		Addr    string        `env:"HTTP_ADDR" envDefault:":8080"`
//		Timeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"5s"`
//	}
//
// Load parses a type once per process and hands out copies afterwards. The
// first call also reads ./.env through godotenv. Parse skips the cache and is
// the right tool when one struct is read under several prefixes:
//
//	primary, err := config.Parse[redis.Config](config.WithPrefix("PRIMARY_"))
//
// LoadEnv and OverloadEnv load extra .env files. ResetCache and
// ForceReloadConfig exist for tests that change the environment.
//
// All parse failures match ErrParsingConfig with errors.Is.
package config
