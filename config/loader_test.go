package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSession, cfg.Session)
	assert.Equal(t, DefaultGracePeriod, cfg.Engine.GracePeriod)
	assert.Equal(t, DefaultConnTimeout, cfg.Engine.ConnectTimeout)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	assert.Zero(t, cfg.Port)
	assert.Zero(t, cfg.Cores)
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSession, cfg.Session)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
session: client-server
cores: 2
engine_version: "6.1"
port: 2036
engine:
  grace_period: 2s
  start_timeout: 1m
  installs:
    - version: "6.0"
      executable: /opt/engine-6.0/bin/engine
    - version: "6.1"
      executable: /opt/engine-6.1/bin/engine
logging:
  format: json
  verbosity: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "client-server", cfg.Session)
	assert.Equal(t, 2, cfg.Cores)
	assert.Equal(t, "6.1", cfg.EngineVersion)
	assert.Equal(t, 2036, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.Engine.GracePeriod)
	assert.Equal(t, time.Minute, cfg.Engine.StartTimeout)
	assert.Len(t, cfg.Engine.Installs, 2)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2, cfg.Logging.Verbosity)
	// Untouched by the file.
	assert.Equal(t, DefaultConnTimeout, cfg.Engine.ConnectTimeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "session: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidSession(t *testing.T) {
	path := writeFile(t, "session: bogus\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("SIMLINK_SESSION", "stand-alone")
	t.Setenv("SIMLINK_CORES", "4")
	t.Setenv("SIMLINK_ENGINE_VERSION", "5.6")
	t.Setenv("SIMLINK_PORT", "2040")
	t.Setenv("SIMLINK_ENGINE_GRACE_PERIOD", "750ms")
	t.Setenv("SIMLINK_ENGINE_EXECUTABLE", "/usr/local/bin/engine")
	t.Setenv("SIMLINK_LOGGING_FORMAT", "text")

	cfg := Default()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "stand-alone", cfg.Session)
	assert.Equal(t, 4, cfg.Cores)
	assert.Equal(t, "5.6", cfg.EngineVersion)
	assert.Equal(t, 2040, cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.GracePeriod)
	assert.Equal(t, "/usr/local/bin/engine", cfg.Engine.Executable)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFromEnv_NoOverrideWhenUnset(t *testing.T) {
	cfg := Default()
	cfg.Session = "client-server"
	cfg.Cores = 3
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, "client-server", cfg.Session)
	assert.Equal(t, 3, cfg.Cores)
}

func TestLoadFromEnv_InvalidInt(t *testing.T) {
	t.Setenv("SIMLINK_CORES", "lots")
	cfg := Default()
	assert.Error(t, LoadFromEnv(cfg))
}

// TestLoad_EnvBeatsFile verifies environment variables take precedence
// over the config file.
func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeFile(t, "session: client-server\ncores: 2\n")
	t.Setenv("SIMLINK_CORES", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "client-server", cfg.Session)
	assert.Equal(t, 8, cfg.Cores)
}
