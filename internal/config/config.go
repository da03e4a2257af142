// Package config loads dlog settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by every dlog command. Command-line flags
// override these values.
type Config struct {
	DBPath       string        `env:"DLOG_DB"            envDefault:"dlog.db"`
	Addr         string        `env:"DLOG_ADDR"          envDefault:"127.0.0.1:8080"`
	FoldInterval time.Duration `env:"DLOG_FOLD_INTERVAL" envDefault:"30s"`
	GenesisPath  string        `env:"DLOG_GENESIS"`
	LogLevel     string        `env:"DLOG_LOG_LEVEL"     envDefault:"info"`
	LogFormat    string        `env:"DLOG_LOG_FORMAT"    envDefault:"text"`
}

// Load parses Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Defaults returns the configuration with every variable unset.
func Defaults() Config {
	cfg, _ := LoadFrom(map[string]string{})
	return cfg
}

// LoadFrom parses Config from the given variables instead of the process
// environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DLOG_DB must not be empty")
	}
	if c.FoldInterval < 0 {
		return fmt.Errorf("DLOG_FOLD_INTERVAL must not be negative, got %s", c.FoldInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("DLOG_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
