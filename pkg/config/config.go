// Package config loads the exchange's runtime configuration from an
// optional YAML file, falling back to DefaultConfig for anything unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ServerConfig controls the HTTP/WebSocket listener.
type ServerConfig struct {
	Port            int    `json:"port" yaml:"port"`
	ReadTimeoutSec  int    `json:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `json:"write_timeout_sec" yaml:"write_timeout_sec"`
	ShutdownGraceS  int    `json:"shutdown_grace_sec" yaml:"shutdown_grace_sec"`
	Mode            string `json:"mode" yaml:"mode"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
	Encoding    string `json:"encoding" yaml:"encoding"`
}

// AdminConfig holds the admin bearer used by the collateral endpoint.
// It defaults to the literal carried over from the original system and
// can be overridden from the YAML file; see DESIGN.md.
type AdminConfig struct {
	BearerToken string `json:"bearer_token" yaml:"bearer_token"`
}

// TradingConfig controls window and collateral defaults.
type TradingConfig struct {
	PreWindowDays   int `json:"pre_window_days" yaml:"pre_window_days"`
	PostWindowSec   int `json:"post_window_sec" yaml:"post_window_sec"`
	EventBufferSize int `json:"event_buffer_size" yaml:"event_buffer_size"`
	RateLimitPerSec int `json:"rate_limit_per_sec" yaml:"rate_limit_per_sec"`
	RateLimitBurst  int `json:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// PersistenceConfig controls the optional snapshot mirror (§4.7).
// Dir is normally sourced from the PERSISTENT_DIR environment variable,
// not the YAML file, matching the external interface contract.
type PersistenceConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Config is the top-level configuration object.
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Admin       AdminConfig       `json:"admin" yaml:"admin"`
	Trading     TradingConfig     `json:"trading" yaml:"trading"`
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
			ShutdownGraceS:  10,
			Mode:            "release",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
			Encoding:    "json",
		},
		Admin: AdminConfig{
			BearerToken: "password123",
		},
		Trading: TradingConfig{
			PreWindowDays:   15,
			PostWindowSec:   60,
			EventBufferSize: 256,
			RateLimitPerSec: 200,
			RateLimitBurst:  400,
		},
		Persistence: PersistenceConfig{
			Dir: "",
		},
	}
}

// LoadConfig reads path as YAML and overlays it onto DefaultConfig. An
// empty path, or a path that does not exist, returns the defaults
// unchanged rather than an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internally-consistent invariants of the loaded config.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Trading.PreWindowDays <= 0 {
		return fmt.Errorf("config: invalid trading.pre_window_days %d", c.Trading.PreWindowDays)
	}
	if c.Trading.EventBufferSize <= 0 {
		return fmt.Errorf("config: invalid trading.event_buffer_size %d", c.Trading.EventBufferSize)
	}
	return nil
}

// ApplyEnv overlays environment-sourced settings per §6: PERSISTENT_DIR
// enables the snapshot file when set.
func (c *Config) ApplyEnv() {
	if dir := os.Getenv("PERSISTENT_DIR"); dir != "" {
		c.Persistence.Dir = dir
	}
}

// ServerAddr returns the address the HTTP server should bind.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
