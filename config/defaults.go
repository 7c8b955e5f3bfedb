package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSession lets the host platform decide the startup mode.
	DefaultSession = "platform-dependent"

	// DefaultConnTimeout bounds a single dial to the engine server.
	DefaultConnTimeout = 30 * time.Second

	// DefaultGracePeriod is how long Stop waits for the server process
	// to exit after asking it to close, before killing it.
	DefaultGracePeriod = 5 * time.Second

	// DefaultStartTimeout of zero means the wait for the server's port
	// is unbounded.
	DefaultStartTimeout time.Duration = 0

	// DefaultLogFormat picks text on a terminal and JSON otherwise.
	DefaultLogFormat = "auto"

	// DefaultVerbosity is "normal": info, warnings and errors.
	DefaultVerbosity = 1

	// EnvPrefix is the prefix for every environment variable.
	EnvPrefix = "SIMLINK"

	// DefaultConfigFile is read when --config is not given.  A missing
	// file is not an error.
	DefaultConfigFile = "simlink.yaml"
)
