package config

import (
	"strings"
	"testing"
	"time"

	serrors "simlink/internal/errors"
)

// ── Config.Validate ──────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"stand-alone", func(c *Config) { c.Session = "stand-alone" }, false},
		{"client-server", func(c *Config) { c.Session = "client-server" }, false},
		{"auto alias", func(c *Config) { c.Session = "auto" }, false},
		{"bogus session", func(c *Config) { c.Session = "bogus" }, true},
		{"empty session", func(c *Config) { c.Session = "" }, true},
		{"negative cores", func(c *Config) { c.Cores = -1 }, true},
		{"one core", func(c *Config) { c.Cores = 1 }, false},
		{"fixed port", func(c *Config) { c.Port = 2036 }, false},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"negative port", func(c *Config) { c.Port = -1 }, true},
		{"negative grace", func(c *Config) { c.Engine.GracePeriod = -time.Second }, true},
		{"negative connect timeout", func(c *Config) { c.Engine.ConnectTimeout = -time.Second }, true},
		{"negative start timeout", func(c *Config) { c.Engine.StartTimeout = -time.Second }, true},
		{"install without executable", func(c *Config) { c.Engine.Installs = []Install{{Version: "6.1"}} }, true},
		{"complete install", func(c *Config) { c.Engine.Installs = []Install{{Version: "6.1", Executable: "/opt/engine"}} }, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && !serrors.IsConfig(err) {
				t.Errorf("expected *ConfigError, got %T", err)
			}
		})
	}
}

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"session has hint", func(c *Config) { c.Session = "bogus" }, "hint:"},
		{"port has hint", func(c *Config) { c.Port = 99999 }, "use 0 to let the OS pick"},
		{"cores has hint", func(c *Config) { c.Cores = -4 }, "hint:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

// ── Option surface ───────────────────────────────────────────────────

func TestOption_RoundTrip(t *testing.T) {
	cfg := Default()
	if got := cfg.Option(OptSession); got != DefaultSession {
		t.Errorf("session = %q, want %q", got, DefaultSession)
	}

	steps := []struct{ name, value string }{
		{OptSession, "client-server"},
		{OptCores, "2"},
		{OptEngineVersion, "6.1"},
		{OptPort, "2036"},
	}
	for _, s := range steps {
		if err := cfg.SetOption(s.name, s.value); err != nil {
			t.Fatalf("SetOption(%q): %v", s.name, err)
		}
		if got := cfg.Option(s.name); got != s.value {
			t.Errorf("Option(%q) = %q, want %q", s.name, got, s.value)
		}
	}
	if cfg.Cores != 2 || cfg.Port != 2036 {
		t.Errorf("typed fields not updated: cores=%d port=%d", cfg.Cores, cfg.Port)
	}
}

func TestSetOption_Errors(t *testing.T) {
	cfg := Default()
	if err := cfg.SetOption("colour", "blue"); !serrors.IsConfig(err) {
		t.Errorf("unknown option: expected ConfigError, got %v", err)
	}
	if err := cfg.SetOption(OptCores, "many"); !serrors.IsConfig(err) {
		t.Errorf("bad cores: expected ConfigError, got %v", err)
	}
	if cfg.Option("colour") != "" {
		t.Error("unknown option should read as empty")
	}
}

// TestSetOption_SessionUnchecked verifies that an unsupported session
// value is stored and only rejected when a session is started.
func TestSetOption_SessionUnchecked(t *testing.T) {
	cfg := Default()
	if err := cfg.SetOption(OptSession, "invalid"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if cfg.Option(OptSession) != "invalid" {
		t.Errorf("session = %q", cfg.Option(OptSession))
	}
}
