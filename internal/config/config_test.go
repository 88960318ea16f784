package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "env: production\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2333, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "keystore", cfg.KeystoreDir)
	assert.Contains(t, cfg.DSN, "tcp(127.0.0.1:3306)/daybook")
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadBuildsDSNFromParts(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: 3307
  user: journal
  password: hunter2
  name: journal_prod
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.DSN, "journal:hunter2@tcp(db.internal:3307)/journal_prod")
	assert.Contains(t, cfg.DSN, "charset=utf8mb4")
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := writeConfig(t, "port: 99999\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "no_such_key: true\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestRedisURLWithAuth(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380, Password: "secret", DB: 2}
	assert.Equal(t, "redis://:secret@cache:6380/2", cfg.URLValue())
}
