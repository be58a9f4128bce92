// Package config loads scandex configuration. Settings are applied in
// order of increasing precedence: built-in defaults, the user config file
// (~/.config/scandex/config.yaml), the project config (.scandex.yaml in the
// project root), then SCANDEX_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete scandex configuration.
type Config struct {
	Version int           `yaml:"version"`
	Paths   PathsConfig   `yaml:"paths"`
	Scan    ScanConfig    `yaml:"scan"`
	Chunks  ChunksConfig  `yaml:"chunks"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig selects which paths the scanner visits.
type PathsConfig struct {
	// Exclude patterns are added on top of the built-in exclusions.
	Exclude []string `yaml:"exclude"`
}

// ScanConfig tunes the scan pipeline.
type ScanConfig struct {
	// Workers is the number of concurrent decision workers (0 = NumCPU).
	Workers int `yaml:"workers"`

	// MaxFileSize is the content-indexing threshold in bytes. Larger files
	// are still tracked and covered by metadata indexes.
	MaxFileSize int64 `yaml:"max_file_size"`

	// StampCacheSize is the number of files with buffered stamps.
	StampCacheSize int `yaml:"stamp_cache_size"`

	// RespectGitignore enables .gitignore handling during the walk.
	RespectGitignore bool `yaml:"respect_gitignore"`

	// FollowSymlinks includes symlinked files.
	FollowSymlinks bool `yaml:"follow_symlinks"`

	// WatchDebounce is the quiet period before reacting to file events
	// in watch mode, as a duration string.
	WatchDebounce string `yaml:"watch_debounce"`
}

// ChunksConfig configures the shared precomputed chunk catalog.
type ChunksConfig struct {
	// Enabled turns the shared-chunk path on. Off by default.
	Enabled bool `yaml:"enabled"`

	// Path is the chunk catalog location. Empty uses
	// <data-dir>/chunks.db.
	Path string `yaml:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File is the log destination. Empty uses the default log path under
	// the data directory.
	File string `yaml:"file"`
}

// DefaultMaxFileSize is the content-indexing threshold (4 MiB).
const DefaultMaxFileSize = 4 * 1024 * 1024

// New returns the built-in defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Scan: ScanConfig{
			Workers:          runtime.NumCPU(),
			MaxFileSize:      DefaultMaxFileSize,
			StampCacheSize:   4096,
			RespectGitignore: true,
			WatchDebounce:    "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// UserConfigPath returns the user config location, honoring XDG_CONFIG_HOME.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scandex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "scandex", "config.yaml")
	}
	return filepath.Join(home, ".config", "scandex", "config.yaml")
}

// Load builds the effective configuration for a project directory.
func Load(dir string) (*Config, error) {
	cfg := New()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	for _, name := range []string{".scandex.yaml", ".scandex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other. Exclude patterns
// accumulate rather than replace, so project configs extend user configs.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Scan.Workers != 0 {
		c.Scan.Workers = other.Scan.Workers
	}
	if other.Scan.MaxFileSize != 0 {
		c.Scan.MaxFileSize = other.Scan.MaxFileSize
	}
	if other.Scan.StampCacheSize != 0 {
		c.Scan.StampCacheSize = other.Scan.StampCacheSize
	}
	if other.Scan.FollowSymlinks {
		c.Scan.FollowSymlinks = true
	}
	if other.Scan.WatchDebounce != "" {
		c.Scan.WatchDebounce = other.Scan.WatchDebounce
	}

	if other.Chunks.Enabled {
		c.Chunks.Enabled = true
	}
	if other.Chunks.Path != "" {
		c.Chunks.Path = other.Chunks.Path
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies SCANDEX_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCANDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCANDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scan.Workers = n
		}
	}
	if v := os.Getenv("SCANDEX_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Scan.MaxFileSize = n
		}
	}
	if v := os.Getenv("SCANDEX_CHUNKS_ENABLED"); v != "" {
		c.Chunks.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative, got %d", c.Scan.Workers)
	}
	if c.Scan.MaxFileSize <= 0 {
		return fmt.Errorf("scan.max_file_size must be positive, got %d", c.Scan.MaxFileSize)
	}
	if c.Scan.WatchDebounce != "" {
		if _, err := time.ParseDuration(c.Scan.WatchDebounce); err != nil {
			return fmt.Errorf("scan.watch_debounce is not a duration: %q", c.Scan.WatchDebounce)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// WatchDebounce returns the parsed debounce duration.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Scan.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
