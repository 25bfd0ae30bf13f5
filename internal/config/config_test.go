package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ganot/taskdeck/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	require.Equal(t, "file", cfg.Store.Backend)
	require.Equal(t, 2*time.Hour, cfg.Session.Lifetime)
	require.Equal(t, time.Minute, cfg.Session.CheckInterval)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
api:
  base_url: https://tracker.example.com
store:
  backend: sqlite
  path: /tmp/creds.db
session:
  lifetime: 30m
  check_interval: 5s
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://tracker.example.com", cfg.API.BaseURL)
	require.Equal(t, "sqlite", cfg.Store.Backend)
	require.Equal(t, "/tmp/creds.db", cfg.Store.Path)
	require.Equal(t, 30*time.Minute, cfg.Session.Lifetime)
	require.Equal(t, 5*time.Second, cfg.Session.CheckInterval)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TASKDECK_API_URL", "https://env.example.com")
	t.Setenv("TASKDECK_SESSION_LIFETIME", "1h")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	require.Equal(t, time.Hour, cfg.Session.Lifetime)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("TASKDECK_STORE_BACKEND", "redis")

	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoad_InvalidLifetime(t *testing.T) {
	t.Setenv("TASKDECK_SESSION_LIFETIME", "soon")

	_, err := config.Load("")
	require.Error(t, err)
}
