package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvsession/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestNew(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf)).Info("hello")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("debug hidden by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf)).Debug("quiet")
		assert.Empty(t, buf.String())
	})

	t.Run("text format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithTextFormatter()).Info("hello")
		assert.Contains(t, buf.String(), "level=INFO")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("last format wins", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithTextFormatter(), logger.WithJSONFormatter()).Info("x")
		assert.Equal(t, "x", decode(t, buf)["msg"])
	})

	t.Run("static attributes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithAttr(logger.Backend("redis"))).Info("x")
		assert.Equal(t, "redis", decode(t, buf)["backend"])
	})

	t.Run("handler options override level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithLevel(slog.LevelError),
			logger.WithHandlerOptions(&slog.HandlerOptions{Level: slog.LevelDebug}),
		)
		log.Debug("shown")
		assert.Equal(t, "shown", decode(t, buf)["msg"])
	})

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() { logger.WithFormat("xml") })
	})
}

func TestContextExtraction(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithContextValue("tenant", ctxKey{}),
		logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
			return logger.ManagerID("mgr-1"), true
		}),
	)

	t.Run("value present", func(t *testing.T) {
		buf.Reset()
		ctx := context.WithValue(context.Background(), ctxKey{}, "acme")
		log.With(logger.Component("test")).InfoContext(ctx, "x")

		entry := decode(t, buf)
		assert.Equal(t, "acme", entry["tenant"])
		assert.Equal(t, "mgr-1", entry["manager_id"])
		assert.Equal(t, "test", entry["component"])
	})

	t.Run("value absent", func(t *testing.T) {
		buf.Reset()
		log.WithGroup("g").InfoContext(context.Background(), "x", slog.Int("n", 1))

		entry := decode(t, buf)
		assert.NotContains(t, entry, "tenant")
		assert.Equal(t, map[string]any{"n": float64(1), "manager_id": "mgr-1"}, entry["g"])
	})
}

func TestEnvironmentPresets(t *testing.T) {
	tests := []struct {
		env      string
		wantEnv  string
		debug    bool
		wantJSON bool
	}{
		{logger.EnvDevelopment, logger.EnvDevelopment, true, false},
		{"dev", logger.EnvDevelopment, true, false},
		{logger.EnvStaging, logger.EnvStaging, false, true},
		{"prod", logger.EnvProduction, false, true},
		{"qa", logger.EnvDevelopment, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := logger.New(logger.WithEnvironment(tt.env, "svc"), logger.WithOutput(buf))
			log.Debug("d")
			log.Info("i")

			out := buf.String()
			debugLine := "msg=d"
			if tt.wantJSON {
				debugLine = `"msg":"d"`
			}
			assert.Equal(t, tt.debug, strings.Contains(out, debugLine), out)
			if tt.wantJSON {
				assert.Contains(t, out, `"env":"`+tt.wantEnv+`"`)
				assert.Contains(t, out, `"service":"svc"`)
			} else {
				assert.Contains(t, out, "env="+tt.wantEnv)
				assert.Contains(t, out, "service=svc")
			}
		})
	}

	t.Run("empty service is a no-op", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger.New(logger.WithProduction(""), logger.WithOutput(buf)).Info("x")
		assert.NotContains(t, decode(t, buf), "service")
	})
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger.SetAsDefault(logger.New(logger.WithOutput(buf)))
	slog.Info("default")
	assert.Equal(t, "default", decode(t, buf)["msg"])
}
