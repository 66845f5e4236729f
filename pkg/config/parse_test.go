package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvsession/pkg/config"
)

type StoreConfig struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port int    `env:"PORT" envDefault:"6379"`
}

type CredentialsConfig struct {
	User     string `env:"USER_NAME"`
	Password string `env:"PASSWORD" envDefault:"secret"`
}

func TestParse(t *testing.T) {
	t.Run("prefix", func(t *testing.T) {
		t.Setenv("PRIMARY_HOST", "redis-a")
		t.Setenv("REPLICA_HOST", "redis-b")
		t.Setenv("REPLICA_PORT", "6380")

		primary, err := config.Parse[StoreConfig](config.WithPrefix("PRIMARY_"))
		require.NoError(t, err)
		replica, err := config.Parse[StoreConfig](config.WithPrefix("REPLICA_"))
		require.NoError(t, err)

		assert.Equal(t, StoreConfig{Host: "redis-a", Port: 6379}, primary)
		assert.Equal(t, StoreConfig{Host: "redis-b", Port: 6380}, replica)
	})

	t.Run("explicit environment", func(t *testing.T) {
		cfg, err := config.Parse[StoreConfig](config.WithEnvironment(map[string]string{"PORT": "7000"}))
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Port)
		assert.Equal(t, "localhost", cfg.Host)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := config.Parse[StoreConfig](config.WithEnvironment(map[string]string{"PORT": "abc"}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("required if no default", func(t *testing.T) {
		env := config.WithEnvironment(map[string]string{})
		_, err := config.Parse[CredentialsConfig](env, config.WithRequiredIfNoDefault())
		assert.ErrorIs(t, err, config.ErrParsingConfig)

		cfg, err := config.Parse[CredentialsConfig](env)
		require.NoError(t, err)
		assert.Equal(t, "secret", cfg.Password)
	})
}

func TestMustParse(t *testing.T) {
	assert.NotPanics(t, func() {
		cfg := config.MustParse[StoreConfig](config.WithEnvironment(map[string]string{"HOST": "db"}))
		assert.Equal(t, "db", cfg.Host)
	})
	assert.Panics(t, func() {
		config.MustParse[StoreConfig](config.WithEnvironment(map[string]string{"PORT": "x"}))
	})
}
