// Package config loads the lexdesk configuration from a TOML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/roasbeef/lexdesk/internal/build"
	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/roasbeef/lexdesk/internal/summary"
)

const (
	// DirName is the per-user configuration directory under $HOME.
	DirName = ".lexdesk"

	// FileName is the configuration file inside DirName.
	FileName = "config.toml"

	// EnvServerURL overrides the backend URL.
	EnvServerURL = "LEXDESK_SERVER_URL"

	// EnvLogLevel overrides the log level.
	EnvLogLevel = "LEXDESK_LOG_LEVEL"

	// EnvLogDir overrides the log directory.
	EnvLogDir = "LEXDESK_LOG_DIR"
)

// Config is the full client configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
	Summary SummaryConfig `toml:"summary"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServerConfig describes the backend.
type ServerConfig struct {
	// URL is the backend root URL.
	URL string `toml:"url"`

	// Username is remembered after a successful login.
	Username string `toml:"username,omitempty"`

	// Timeout is a Go duration string bounding each request.
	Timeout string `toml:"timeout"`
}

// LogConfig controls logging.
type LogConfig struct {
	Dir         string `toml:"dir"`
	Level       string `toml:"level"`
	MaxFiles    int    `toml:"max_files"`
	MaxFileSize int    `toml:"max_file_size_mb"`
}

// SummaryConfig tunes the summary service.
type SummaryConfig struct {
	MaxConcurrent      int `toml:"max_concurrent"`
	NotificationBuffer int `toml:"notification_buffer"`
}

// MetricsConfig controls the Prometheus endpoint served in MCP mode.
type MetricsConfig struct {
	// ListenAddr is the address for /metrics. Empty disables it.
	ListenAddr string `toml:"listen_addr,omitempty"`
}

// DefaultDir returns ~/.lexdesk.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}

	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.lexdesk/config.toml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, FileName), nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	logDir := filepath.Join(DirName, "logs")
	if dir, err := DefaultDir(); err == nil {
		logDir = filepath.Join(dir, "logs")
	}

	return &Config{
		Server: ServerConfig{
			URL:     lexapi.DefaultBaseURL,
			Timeout: lexapi.DefaultTimeout.String(),
		},
		Log: LogConfig{
			Dir:         logDir,
			Level:       "info",
			MaxFiles:    build.DefaultMaxLogFiles,
			MaxFileSize: build.DefaultMaxLogFileSize,
		},
		Summary: SummaryConfig{
			MaxConcurrent:      summary.DefaultMaxConcurrent,
			NotificationBuffer: summary.DefaultNotificationBuffer,
		},
	}
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. A missing file is not an error. An empty path
// selects DefaultPath.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile reads the configuration at path on top of the defaults.
func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):

	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)

	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Update applies modify to the configuration stored at path and writes it
// back. Environment overrides are not persisted.
func Update(path string, modify func(*Config)) error {
	cfg, err := loadFile(path)
	if err != nil {
		return err
	}

	modify(cfg)

	return cfg.Save(path)
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overlays the LEXDESK_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		c.Log.Dir = v
	}
}

// Validate checks the configuration for values the client cannot use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.Server.URL)
	}

	if _, err := c.RequestTimeout(); err != nil {
		return err
	}

	if c.Summary.MaxConcurrent < 0 {
		return fmt.Errorf("summary.max_concurrent must not be "+
			"negative, got %d", c.Summary.MaxConcurrent)
	}

	return nil
}

// RequestTimeout parses Server.Timeout. An empty value selects the client
// default.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Server.Timeout == "" {
		return lexapi.DefaultTimeout, nil
	}

	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid server timeout %q: %w",
			c.Server.Timeout, err)
	}

	return d, nil
}

// SummaryService returns the summary service configuration.
func (c *Config) SummaryService() summary.Config {
	return summary.Config{
		MaxConcurrent:      c.Summary.MaxConcurrent,
		NotificationBuffer: c.Summary.NotificationBuffer,
	}
}

// LogSettings returns the logging configuration.
func (c *Config) LogSettings() build.LogConfig {
	return build.LogConfig{
		Dir:         c.Log.Dir,
		Level:       c.Log.Level,
		MaxFiles:    c.Log.MaxFiles,
		MaxFileSize: c.Log.MaxFileSize,
	}
}
