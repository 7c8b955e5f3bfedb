// Package core is the orchestration layer.  It turns a configured
// session preference plus host-platform facts into a concrete startup
// mode, and allocates the engine handles that mode requires.
//
// Architecture layers (bottom → top):
//
//	transport  →  engine  →  core  →  session  →  cmd (CLI)
//
// Resolve is the single dispatch point for the mode decision; Allocate
// is the single place that knows the Server-before-Client ordering.
package core

import (
	"fmt"
	"runtime"
	"strings"

	serrors "simlink/internal/errors"
)

// Mode is a concrete startup mode.
type Mode string

const (
	// Standalone embeds the engine in-process.
	Standalone Mode = "stand-alone"
	// ClientServer connects over a local port to a spawned server.
	ClientServer Mode = "client-server"
)

// Preference is a configured mode preference: a concrete Mode or Auto.
type Preference string

const (
	PreferStandalone   Preference = Preference(Standalone)
	PreferClientServer Preference = Preference(ClientServer)
	// PreferAuto defers the decision to the host platform.
	PreferAuto Preference = "platform-dependent"
)

// autoAlias is accepted as a synonym for PreferAuto.
const autoAlias = "auto"

// ValidPreferences lists the accepted configuration values.
var ValidPreferences = []Preference{PreferStandalone, PreferClientServer, PreferAuto}

// State names the session state a mode activates.
func (m Mode) State() string {
	return "active-" + strings.ReplaceAll(string(m), "-", "")
}

// Platform carries the host facts the resolver needs.
type Platform struct {
	OS string // runtime.GOOS spelling
}

// HostPlatform describes the platform this process runs on.
func HostPlatform() Platform {
	return Platform{OS: runtime.GOOS}
}

// CanEmbed reports whether in-process embedding of the engine is
// reliable on this platform.  Only Windows qualifies.
func (p Platform) CanEmbed() bool {
	return p.OS == "windows"
}

// ParsePreference validates a configured preference string.
func ParsePreference(s string) (Preference, error) {
	if s == autoAlias {
		return PreferAuto, nil
	}
	for _, p := range ValidPreferences {
		if Preference(s) == p {
			return p, nil
		}
	}
	return "", &serrors.ConfigError{
		Field:   "session",
		Value:   s,
		Message: "unsupported session type",
		Hint:    fmt.Sprintf("use one of %s, %s, %s", PreferStandalone, PreferClientServer, PreferAuto),
	}
}

// Resolve turns a preference into a concrete Mode.  Explicit modes pass
// through unchanged; auto picks stand-alone where embedding is reliable
// and client-server everywhere else.
func Resolve(preference string, host Platform) (Mode, error) {
	p, err := ParsePreference(preference)
	if err != nil {
		return "", err
	}
	if p != PreferAuto {
		return Mode(p), nil
	}
	if host.CanEmbed() {
		return Standalone, nil
	}
	return ClientServer, nil
}
