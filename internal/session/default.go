package session

import (
	"context"
	"sync"

	"simlink/internal/engine"
	serrors "simlink/internal/errors"
)

var (
	defaultMu      sync.RWMutex
	defaultManager *Manager
)

// SetDefault installs m as the process-wide session and returns the
// one it replaces.  Passing nil removes the default.
func SetDefault(m *Manager) *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultManager
	defaultManager = m
	return prev
}

// Default returns the process-wide session, or nil.
func Default() *Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultManager
}

// Start calls Start on the default Manager.
func Start(ctx context.Context, opts StartOptions) (engine.Client, error) {
	m := Default()
	if m == nil {
		return nil, serrors.ErrNoSession
	}
	return m.Start(ctx, opts)
}

// Shutdown shuts the default Manager down.  Without one it does
// nothing.
func Shutdown() Report {
	m := Default()
	if m == nil {
		return Report{}
	}
	return m.Shutdown()
}
