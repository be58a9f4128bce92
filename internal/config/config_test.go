package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Scan.MaxFileSize)
	assert.True(t, cfg.Scan.RespectGitignore)
	assert.False(t, cfg.Chunks.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())
}

func TestLoad_ProjectConfigOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	content := `
version: 1
scan:
  workers: 2
  max_file_size: 1048576
  watch_debounce: 2s
paths:
  exclude:
    - "archive/**"
chunks:
  enabled: true
  path: /tmp/chunks.db
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scandex.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, int64(1048576), cfg.Scan.MaxFileSize)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce())
	assert.Contains(t, cfg.Paths.Exclude, "archive/**")
	assert.True(t, cfg.Chunks.Enabled)
	assert.Equal(t, "/tmp/chunks.db", cfg.Chunks.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_UserConfigThenProject(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	userDir := filepath.Join(xdg, "scandex")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"),
		[]byte("logging:\n  level: warn\npaths:\n  exclude:\n    - \"*.bak\"\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scandex.yaml"),
		[]byte("paths:\n  exclude:\n    - \"archive/**\"\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Project excludes extend user excludes instead of replacing them.
	assert.Contains(t, cfg.Paths.Exclude, "*.bak")
	assert.Contains(t, cfg.Paths.Exclude, "archive/**")
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SCANDEX_LOG_LEVEL", "error")
	t.Setenv("SCANDEX_WORKERS", "3")
	t.Setenv("SCANDEX_MAX_FILE_SIZE", "2048")
	t.Setenv("SCANDEX_CHUNKS_ENABLED", "1")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, int64(2048), cfg.Scan.MaxFileSize)
	assert.True(t, cfg.Chunks.Enabled)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scandex.yaml"),
		[]byte("scan: [not a map"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())

	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())

	cfg = New()
	cfg.Scan.MaxFileSize = 0
	require.Error(t, cfg.Validate())

	cfg = New()
	cfg.Scan.WatchDebounce = "soon"
	require.Error(t, cfg.Validate())
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	cfg := New()
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Save(filepath.Join(dir, ".scandex.yaml")))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Logging.Level)
}
