package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/model"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, model.SessionBackendKeyring, cfg.Session.Backend)
	assert.Equal(t, model.DefaultPageSize, cfg.Todos.PageSize)
	assert.False(t, cfg.Todos.RefetchAfterMutation)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `api:
  base_url: http://todo.test:9000/
  timeout_sec: 3
session:
  backend: sqlite
todos:
  page_size: 25
  refetch_after_mutation: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://todo.test:9000", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.API.TimeoutSec)
	assert.Equal(t, model.SessionBackendSQLite, cfg.Session.Backend)
	assert.Equal(t, 25, cfg.Todos.PageSize)
	assert.True(t, cfg.Todos.RefetchAfterMutation)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TODOCTL_API_BASE_URL", "http://env.test")

	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.test", cfg.API.BaseURL)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  backend: vault\n"), 0o600))

	_, err := model.LoadConfig(path)
	assert.Error(t, err)
}
