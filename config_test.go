package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{"PORT", "DATABASE_URL", "JWT_SECRET", "CORS_ORIGINS", "REDIS_URL", "LONG_POLL_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT"}

// clearConfigEnv unsets every config variable for the test and restores
// them afterwards.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "file:taskboard.db", cfg.DatabaseURL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.LongPollTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	clearConfigEnv(t)
	_, err := LoadConfig("", "")
	assert.Error(t, err)
}

func TestLoadConfigLayers(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "taskboard.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
port: "8080"
database_url: postgres://localhost/boards
jwt_secret: from-yaml
long_poll_timeout: 2s
cors_origins:
  - https://boards.example.com
`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(`
# overrides
PORT=9090
LOG_FORMAT="console"
`), 0o600))

	t.Setenv("LONG_POLL_TIMEOUT", "7")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := LoadConfig(yamlPath, envPath)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://localhost/boards", cfg.DatabaseURL)
	assert.Equal(t, "from-yaml", cfg.JWTSecret)
	assert.Equal(t, 7*time.Second, cfg.LongPollTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadConfigMissingEnvFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	_, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoadConfigBadDuration(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LONG_POLL_TIMEOUT", "soon")
	_, err := LoadConfig("", "")
	assert.Error(t, err)
}

func TestLoadEnvKeepsExistingValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=warn\nREDIS_URL='redis://cache:6379/0'\nnot a pair\n"), 0o600))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "redis://cache:6379/0", os.Getenv("REDIS_URL"))
}
