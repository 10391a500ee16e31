package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 5, cfg.Backend.K)
	assert.Equal(t, "docchat.db", cfg.Database.Path)
	assert.False(t, cfg.Database.UseInMemory)
	assert.Equal(t, 2, cfg.Upload.MaxFiles)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  url: http://example.com:9000
  k: 3
database:
  use_in_memory: true
upload:
  max_files: 4
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://example.com:9000", cfg.Backend.URL)
	assert.Equal(t, 3, cfg.Backend.K)
	assert.True(t, cfg.Database.UseInMemory)
	assert.Equal(t, 4, cfg.Upload.MaxFiles)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://env-host:8000")
	t.Setenv("TELEGRAM_TOKEN", "tg-token")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:8000", cfg.Backend.URL)
	assert.Equal(t, "tg-token", cfg.Telegram.Token)
}
