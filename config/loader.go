package config

// loader.go - configuration loading from file and environment.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (SIMLINK_*)
//   3. YAML config file
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, the YAML file at path (if it
// exists) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.  An empty path or a
// missing file leaves cfg untouched.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays SIMLINK_* environment variables onto cfg.  Only
// variables that are set override the existing value.  This should be
// called BEFORE CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}
	return nil
}
