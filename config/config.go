// Package config loads harvester settings from ~/.ffharvest/config.yaml and
// FFHARVEST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pevans/ffharvest/extract"
	"github.com/pevans/ffharvest/fetch"
	"github.com/pevans/ffharvest/logger"
)

// Default values.
const (
	DefaultDelay   = time.Second
	DefaultAPIAddr = ":8080"
	DefaultOutDir  = "out"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ArchiveConfig describes the remote archive and how politely to crawl it.
type ArchiveConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Delay     time.Duration `yaml:"delay"`
	MaxRPS    float64       `yaml:"max_rps"`

	// Layout overrides individual page selectors. Empty fields keep the
	// built-in layout.
	Layout extract.Layout `yaml:"layout"`
}

// StorageConfig describes where harvest output goes.
type StorageConfig struct {
	OutDir string `yaml:"out_dir"`

	// Archive enables the SQLite archive alongside the CSV and text files.
	Archive     bool   `yaml:"archive"`
	ArchivePath string `yaml:"archive_path"`
}

// APIConfig configures the read-only archive API.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the complete harvester configuration.
type Config struct {
	Archive ArchiveConfig `yaml:"archive"`
	Storage StorageConfig `yaml:"storage"`
	API     APIConfig     `yaml:"api"`
	Log     logger.Config `yaml:"log"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Archive: ArchiveConfig{
			BaseURL:   fetch.DefaultBaseURL,
			UserAgent: fetch.DefaultUserAgent,
			Timeout:   fetch.DefaultTimeout,
			Delay:     DefaultDelay,
		},
		Storage: StorageConfig{
			OutDir:  DefaultOutDir,
			Archive: true,
		},
		API: APIConfig{Addr: DefaultAPIAddr},
		Log: logger.Config{Level: logger.DefaultLevel},
	}
}

// Load builds the configuration: defaults, then the config file at path
// (DefaultPath when empty), then environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Defaults()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ArchiveDBPath returns the SQLite archive location, defaulting to
// archive.db inside the output directory.
func (c *Config) ArchiveDBPath() string {
	if c.Storage.ArchivePath != "" {
		return c.Storage.ArchivePath
	}
	return filepath.Join(c.Storage.OutDir, "archive.db")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Archive.BaseURL == "" {
		return fmt.Errorf("%w: archive base URL is empty", ErrInvalid)
	}
	u, err := url.Parse(c.Archive.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: archive base URL must be an http or https URL: %q", ErrInvalid, c.Archive.BaseURL)
	}
	if c.Archive.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative", ErrInvalid)
	}
	if c.Archive.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if c.Archive.MaxRPS < 0 {
		return fmt.Errorf("%w: max_rps must not be negative", ErrInvalid)
	}
	if c.Storage.OutDir == "" {
		return fmt.Errorf("%w: output directory is empty", ErrInvalid)
	}
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// applyEnv overrides fields from FFHARVEST_* environment variables.
func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		*dst = d
		return nil
	}

	setString("FFHARVEST_BASE_URL", &c.Archive.BaseURL)
	setString("FFHARVEST_USER_AGENT", &c.Archive.UserAgent)
	setString("FFHARVEST_OUT_DIR", &c.Storage.OutDir)
	setString("FFHARVEST_ARCHIVE_PATH", &c.Storage.ArchivePath)
	setString("FFHARVEST_API_ADDR", &c.API.Addr)
	setString("FFHARVEST_LOG_LEVEL", &c.Log.Level)

	if err := setDuration("FFHARVEST_DELAY", &c.Archive.Delay); err != nil {
		return err
	}
	if err := setDuration("FFHARVEST_TIMEOUT", &c.Archive.Timeout); err != nil {
		return err
	}

	if v := os.Getenv("FFHARVEST_MAX_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: FFHARVEST_MAX_RPS: %v", ErrInvalid, err)
		}
		c.Archive.MaxRPS = rps
	}
	if v := os.Getenv("FFHARVEST_ARCHIVE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: FFHARVEST_ARCHIVE: %v", ErrInvalid, err)
		}
		c.Storage.Archive = enabled
	}

	return nil
}
