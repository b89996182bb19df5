package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the CLI configuration.
type Config struct {
	Store    string `koanf:"store"`  // sqlite, postgres, redis or memory
	DSN      string `koanf:"dsn"`    // sqlite path, postgres DSN or redis URL
	Prefix   string `koanf:"prefix"` // table or key prefix
	Locale   string `koanf:"locale"`
	LogLevel string `koanf:"log_level"`
}

// DefaultConfig returns the configuration used when no file or environment overrides exist.
func DefaultConfig() *Config {
	return &Config{
		Store:    "sqlite",
		DSN:      "auditlog.db",
		Locale:   "en",
		LogLevel: "info",
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (AUDITLOG_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// AUDITLOG_STORE -> store, AUDITLOG_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider("AUDITLOG_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "AUDITLOG_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, cfg.Validate()
}

var validStores = map[string]bool{"sqlite": true, "postgres": true, "redis": true, "memory": true}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validStores[c.Store] {
		return fmt.Errorf("invalid store %q: must be one of sqlite, postgres, redis, memory", c.Store)
	}
	if c.Store != "memory" && c.DSN == "" {
		return fmt.Errorf("dsn is required for store %q", c.Store)
	}
	return nil
}
