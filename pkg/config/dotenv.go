package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
)

var defaultEnvOnce sync.Once

// loadDefaultEnv reads ./.env once. A missing file is fine.
func loadDefaultEnv() {
	defaultEnvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// LoadEnv loads .env files into the process environment without overriding
// variables already set. Earlier files win. With no arguments it reads ./.env.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("config: loading env files: %w", err)
	}
	return nil
}

// OverloadEnv is LoadEnv where file values replace existing variables.
func OverloadEnv(paths ...string) error {
	if err := godotenv.Overload(paths...); err != nil {
		return fmt.Errorf("config: loading env files: %w", err)
	}
	return nil
}

// MustLoadEnv is LoadEnv that panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(err)
	}
}
