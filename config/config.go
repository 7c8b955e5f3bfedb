// Package config defines the runtime configuration for simlink and
// exposes the key-value option surface the session manager reads its
// mode preference from.
package config

import (
	"fmt"
	"strconv"
	"time"

	"simlink/internal/core"
	serrors "simlink/internal/errors"
)

// Config holds every tuneable for a simlink session.
type Config struct {
	// ── Session ──────────────────────────────────────────────────────
	Session       string `yaml:"session"`                           // stand-alone, client-server, platform-dependent
	Cores         int    `yaml:"cores"`                             // 0 = all available
	EngineVersion string `yaml:"engine_version" split_words:"true"` // "" = latest installed
	Port          int    `yaml:"port"`                              // 0 = OS-assigned

	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig describes how to launch and reach the engine server.
type EngineConfig struct {
	// Executable overrides the server binary.  Empty means the running
	// simlink binary, launched as "simlink serve".
	Executable string `yaml:"executable"`

	// Installs lists installed engine releases for version pinning.
	Installs []Install `yaml:"installs" ignored:"true"`

	GracePeriod    time.Duration `yaml:"grace_period" split_words:"true"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" split_words:"true"`
	StartTimeout   time.Duration `yaml:"start_timeout" split_words:"true"` // 0 = wait forever
}

// Install is one installed engine release.
type Install struct {
	Version    string `yaml:"version"`
	Executable string `yaml:"executable"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Format    string `yaml:"format"` // auto, text, json
	Verbosity int    `yaml:"verbosity"`
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Session: DefaultSession,
		Engine: EngineConfig{
			GracePeriod:    DefaultGracePeriod,
			ConnectTimeout: DefaultConnTimeout,
			StartTimeout:   DefaultStartTimeout,
		},
		Logging: LoggingConfig{
			Format:    DefaultLogFormat,
			Verbosity: DefaultVerbosity,
		},
	}
}

// ── Option surface ───────────────────────────────────────────────────

// Option names understood by Option and SetOption.
const (
	OptSession       = "session"
	OptCores         = "cores"
	OptEngineVersion = "engine-version"
	OptPort          = "port"
)

// Option returns the string value of a named option, or "" for an
// unknown name.
func (c *Config) Option(name string) string {
	switch name {
	case OptSession:
		return c.Session
	case OptCores:
		return strconv.Itoa(c.Cores)
	case OptEngineVersion:
		return c.EngineVersion
	case OptPort:
		return strconv.Itoa(c.Port)
	}
	return ""
}

// SetOption assigns a named option.  The session value is stored as
// given; it is checked when a session is started.
func (c *Config) SetOption(name, value string) error {
	switch name {
	case OptSession:
		c.Session = value
	case OptCores:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &serrors.ConfigError{Field: name, Value: value, Message: "not an integer"}
		}
		c.Cores = n
	case OptEngineVersion:
		c.EngineVersion = value
	case OptPort:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &serrors.ConfigError{Field: name, Value: value, Message: "not an integer"}
		}
		c.Port = n
	default:
		return &serrors.ConfigError{
			Field:   name,
			Message: "unknown option",
			Hint:    fmt.Sprintf("known options: %s, %s, %s, %s", OptSession, OptCores, OptEngineVersion, OptPort),
		}
	}
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if _, err := core.ParsePreference(c.Session); err != nil {
		return err
	}
	if c.Cores < 0 {
		return &serrors.ConfigError{
			Field:   OptCores,
			Value:   c.Cores,
			Message: "must not be negative",
			Hint:    "omit --cores to use all available cores",
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &serrors.ConfigError{
			Field:   OptPort,
			Value:   c.Port,
			Message: "out of range 0-65535",
			Hint:    "use 0 to let the OS pick a free port",
		}
	}
	if c.Engine.GracePeriod < 0 {
		return &serrors.ConfigError{Field: "grace-period", Value: c.Engine.GracePeriod, Message: "must not be negative"}
	}
	if c.Engine.ConnectTimeout < 0 {
		return &serrors.ConfigError{Field: "connect-timeout", Value: c.Engine.ConnectTimeout, Message: "must not be negative"}
	}
	if c.Engine.StartTimeout < 0 {
		return &serrors.ConfigError{
			Field:   "start-timeout",
			Value:   c.Engine.StartTimeout,
			Message: "must not be negative",
			Hint:    "use 0 to wait for the server without a deadline",
		}
	}
	for i, in := range c.Engine.Installs {
		if in.Version == "" || in.Executable == "" {
			return &serrors.ConfigError{
				Field:   fmt.Sprintf("engine.installs[%d]", i),
				Message: "version and executable are required",
			}
		}
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return &serrors.ConfigError{
			Field:   "log-format",
			Value:   c.Logging.Format,
			Message: "unknown log format",
			Hint:    "use auto, text or json",
		}
	}
	return nil
}
