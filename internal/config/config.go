// Package config loads the mirror job configuration from a TOML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/archidekt-mirror/internal/render"
)

// Config represents the application configuration.
type Config struct {
	// Remote API settings
	API APIConfig `toml:"api"`

	// Mirror behavior
	Mirror MirrorConfig `toml:"mirror"`

	// Run journal settings
	Journal JournalConfig `toml:"journal"`

	// Logging settings
	Log LogConfig `toml:"log"`
}

// APIConfig contains Archidekt API client settings.
type APIConfig struct {
	BaseURL         string `toml:"base_url"`         // API base URL
	UserAgent       string `toml:"user_agent"`       // User-Agent header
	RequestInterval string `toml:"request_interval"` // Minimum delay between requests (e.g., "100ms")
}

// MirrorConfig contains the mirror job settings.
type MirrorConfig struct {
	UserID      int      `toml:"user_id"`      // Archidekt user whose decks are mirrored
	Root        string   `toml:"root"`         // Local mirror root directory
	Folders     []int    `toml:"folders"`      // Watched remote folder ids
	Formats     []string `toml:"formats"`      // Requested output formats
	BackupAll   bool     `toml:"backup_all"`   // Also mirror decks outside watched folders
	DeleteStale bool     `toml:"delete_stale"` // Delete artifacts of vanished/moved decks
}

// JournalConfig contains run journal settings.
type JournalConfig struct {
	Path      string `toml:"path"`      // SQLite database path; empty disables the journal
	Retention string `toml:"retention"` // How long to keep run records (e.g., "720h")
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         "https://archidekt.com/api",
			UserAgent:       "archidekt-mirror/1.0",
			RequestInterval: "100ms",
		},
		Mirror: MirrorConfig{
			Formats:     []string{"archidekt", "json"},
			BackupAll:   true,
			DeleteStale: true,
		},
		Journal: JournalConfig{
			Retention: "2160h", // 90 days
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".archidekt-mirror", "config.toml"), nil
}

// Load loads the configuration from disk. Returns default config if the file
// doesn't exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Mirror.UserID <= 0 {
		return fmt.Errorf("mirror.user_id is required")
	}
	if c.Mirror.Root == "" {
		return fmt.Errorf("mirror.root is required")
	}
	if len(c.Mirror.Formats) == 0 {
		return fmt.Errorf("mirror.formats must name at least one format")
	}
	if _, err := c.Formats(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.API.RequestInterval); err != nil {
		return fmt.Errorf("invalid request interval %q: %w", c.API.RequestInterval, err)
	}
	if c.Journal.Path != "" {
		if _, err := time.ParseDuration(c.Journal.Retention); err != nil {
			return fmt.Errorf("invalid journal retention %q: %w", c.Journal.Retention, err)
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Formats returns the parsed output formats in config order.
func (c *Config) Formats() ([]render.Format, error) {
	formats := make([]render.Format, 0, len(c.Mirror.Formats))
	for _, name := range c.Mirror.Formats {
		format, err := render.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, format)
	}
	return formats, nil
}

// RequestInterval returns the API request interval as a duration.
func (c *Config) RequestInterval() (time.Duration, error) {
	return time.ParseDuration(c.API.RequestInterval)
}

// JournalRetention returns the journal retention window as a duration.
func (c *Config) JournalRetention() (time.Duration, error) {
	return time.ParseDuration(c.Journal.Retention)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", c.Log.Level)
	}
}
