package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: debug
jwt:
  secret: dev
storage:
  type: minio
player:
  template_cache_ttl_minutes: 2
  fetch_concurrency: 3
`)
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.Equal(t, 2*time.Minute, cfg.Player.TemplateCacheTTL())
	assert.Equal(t, 24*time.Hour, cfg.Player.CursorTTL())
	assert.Equal(t, 3, cfg.Player.Concurrency())
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
storage:
  type: minio
`)
	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret is too short")
}

func TestPlayerDefaults(t *testing.T) {
	var p PlayerConfig
	assert.Equal(t, 10*time.Minute, p.TemplateCacheTTL())
	assert.Equal(t, 8, p.Concurrency())
}
