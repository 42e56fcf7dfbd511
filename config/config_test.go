package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "loans.db", cfg.DB.Path)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 720*time.Hour, cfg.History.Retention)
	assert.Equal(t, time.Hour, cfg.History.PruneInterval)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
db:
  path: /tmp/history.db
cache:
  backend: redis
  redis_addr: cache:6379
  ttl: 10m
history:
  retention: 0s
log:
  level: debug
  development: true
cors:
  allowed_origins:
    - https://loans.example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "/tmp/history.db", cfg.DB.Path)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Log.Development)
	assert.Zero(t, cfg.History.Retention)
	assert.Equal(t, []string{"https://loans.example.com"}, cfg.CORS.AllowedOrigins)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "http:\n  port: 9090\n")
	t.Setenv("LOANCALC_HTTP_PORT", "7070")
	t.Setenv("LOANCALC_CACHE_BACKEND", "none")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "http:\n  port: 70000\n"},
		{"unknown cache", "cache:\n  backend: memcached\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"negative retention", "history:\n  retention: -1h\n"},
		{"malformed yaml", "http: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := Log{Level: "warn"}.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	dev, err := Log{Level: "debug", Development: true}.NewLogger()
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	_, err = Log{Level: "nope"}.NewLogger()
	assert.Error(t, err)
}
