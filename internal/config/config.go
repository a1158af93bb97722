package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents runtime configuration for the client.
type Config struct {
	APIBase string        `json:"api_base"`
	Storage StorageConfig `json:"storage"`
	Redis   RedisConfig   `json:"redis"`
	Poll    PollConfig    `json:"poll"`
}

// StorageConfig selects the persisted store driver.
// Driver is one of "sqlite3", "mysql", "redis" or "memory".
// DSN is the sqlite file path or the full mysql DSN.
// Cross-instance operation needs a store every instance shares, so pair
// the redis bus with the "redis" or "mysql" driver.
type StorageConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// RedisConfig configures the optional redis connection used for the
// cross-instance bus and the redis store driver. Redis is considered
// disabled while Host is empty.
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// PollConfig overrides the status polling cadence. Zero values fall back
// to the defaults (7s interval, 3m timeout).
type PollConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	TimeoutSeconds  int `json:"timeout_seconds"`
}

// Enabled reports whether a redis connection is configured.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

// SharedStore reports whether the configured store can be shared by
// several instances. Remote announcements only converge against shared
// state; sqlite and memory are per-machine.
func (c *Config) SharedStore() bool {
	switch strings.ToLower(c.Storage.Driver) {
	case "redis", "mysql":
		return true
	default:
		return false
	}
}

// Interval returns the poll period.
func (p PollConfig) Interval() time.Duration {
	if p.IntervalSeconds <= 0 {
		return 7 * time.Second
	}
	return time.Duration(p.IntervalSeconds) * time.Second
}

// Timeout returns the overall polling bound.
func (p PollConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		APIBase: "http://localhost:8000",
		Storage: StorageConfig{Driver: "sqlite3", DSN: "./data/docchat.db"},
	}
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing file at the default location is not an error; built-in defaults
// apply so the CLI works out of the box.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	cfg := Default()
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite3"
	}
	if cfg.Storage.Driver == "sqlite3" {
		if cfg.Storage.DSN == "" {
			return nil, fmt.Errorf("storage dsn must be configured")
		}
		if !filepath.IsAbs(cfg.Storage.DSN) {
			cfg.Storage.DSN = filepath.Join(filepath.Dir(absPath), cfg.Storage.DSN)
		}
	}

	return cfg, nil
}
