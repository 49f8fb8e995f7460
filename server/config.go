package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from yaml with env fallbacks.
type Config struct {
	Version            int    `yaml:"version"`
	Addr               string `yaml:"addr"`
	DatabaseURL        string `yaml:"database_url"`
	AutosaveDebounceMs int    `yaml:"autosave_debounce_ms"`
}

// ListenAddr returns the configured listen address, defaulting to :3000.
func (c *Config) ListenAddr() string {
	if c.Addr == "" {
		return ":3000"
	}
	return c.Addr
}

// LoadConfig reads a yaml config file. A missing path yields an empty config;
// DATABASE_URL and RULEFLOW_ADDR env vars override file values either way.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
		if cfg.Version != 0 && cfg.Version != 1 {
			return nil, fmt.Errorf("unsupported config version: %d", cfg.Version)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("RULEFLOW_ADDR"); v != "" {
		cfg.Addr = v
	}

	return &cfg, nil
}
