// Package session owns the process-wide simulation session: it decides
// the startup mode, allocates the engine handles exactly once, binds
// the session to its first caller, and tears everything down in order
// at exit.
//
// A Manager is the unit of ownership.  Code that wants the classic
// "one session per process" behaviour installs a Manager with
// SetDefault and uses the package-level Start and Shutdown.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"simlink/config"
	"simlink/internal/core"
	"simlink/internal/engine"
	serrors "simlink/internal/errors"
	"simlink/internal/metrics"
	"simlink/util"
)

// State is the lifecycle state of a session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateStandalone    State = "active-standalone"
	StateClientServer  State = "active-clientserver"
	StateStopped       State = "stopped"
)

// Active reports whether the state holds a live client.
func (s State) Active() bool {
	return s == StateStandalone || s == StateClientServer
}

// Provider supplies configuration options by name.  *config.Config
// implements it.
type Provider interface {
	Option(name string) string
}

// Options wires a Manager to its collaborators.
type Options struct {
	Config    Provider
	Allocator core.Allocator
	Runtime   engine.Runtime
	// Platform defaults to the host platform.
	Platform core.Platform
	Logger   *util.Logger
	Metrics  *metrics.Collector
}

// StartOptions are the per-call arguments of Start.
type StartOptions struct {
	Cores         int    // 0 = all available
	EngineVersion string // "" = latest installed
	Port          int    // client-server only; 0 = OS-assigned
}

// Manager holds one session's handles and enforces its lifecycle.
type Manager struct {
	id       string
	cfg      Provider
	alloc    core.Allocator
	rt       engine.Runtime
	platform core.Platform
	logger   *util.Logger
	metrics  *metrics.Collector

	mu       sync.Mutex // guards the fields below; never held across allocation
	state    State
	owner    Owner
	starting bool
	mode     core.Mode
	client   engine.Client
	server   engine.Server
	orphans  []engine.Server // servers whose client failed

	shutdownOnce sync.Once
	report       Report
}

// New returns a Manager in the uninitialized state.
func New(opts Options) *Manager {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = util.NewNopLogger()
	}
	platform := opts.Platform
	if platform.OS == "" {
		platform = core.HostPlatform()
	}
	return &Manager{
		id:       id,
		cfg:      opts.Config,
		alloc:    opts.Allocator,
		rt:       opts.Runtime,
		platform: platform,
		logger:   logger.Named("session").With(zap.String("session", id)),
		metrics:  opts.Metrics,
		state:    StateUninitialized,
	}
}

// Start returns the session's client, allocating it on the first call.
//
// The first caller becomes the session's owner; calls from any other
// identity fail with a *errors.ConcurrencyError.  Repeated calls by the
// owner return the existing client without allocating.  Start after
// Shutdown fails with errors.ErrSessionStopped.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (engine.Client, error) {
	caller := callerIdentity(ctx)

	m.mu.Lock()
	if m.owner == "" {
		m.owner = caller
	}
	if caller != m.owner {
		owner := m.owner
		m.mu.Unlock()
		err := &serrors.ConcurrencyError{Owner: string(owner), Caller: string(caller)}
		m.logger.Error("%v", err)
		m.metrics.RejectedStart()
		return nil, err
	}

	switch {
	case m.state == StateStopped:
		m.mu.Unlock()
		return nil, serrors.ErrSessionStopped
	case m.state.Active():
		client, state := m.client, m.state
		m.mu.Unlock()
		m.logger.Warn("session already %s, returning the existing client", state)
		m.metrics.RedundantStart()
		return client, nil
	case m.starting:
		m.mu.Unlock()
		return nil, serrors.ErrStartInProgress
	}
	m.starting = true
	m.mu.Unlock()

	mode, alloc, err := m.allocate(ctx, opts)

	m.mu.Lock()
	m.starting = false
	if m.state == StateStopped {
		// Shutdown ran while the handles were being built.
		m.mu.Unlock()
		m.logger.Warn("session shut down during start, releasing new handles")
		var r Report
		m.teardown(&r, alloc.Client, []engine.Server{alloc.Server}, m.rt)
		if err != nil {
			return nil, err
		}
		return nil, serrors.ErrSessionStopped
	}
	if err != nil {
		if alloc.Server != nil {
			m.orphans = append(m.orphans, alloc.Server)
		}
		m.mu.Unlock()
		m.logger.Error("session start failed: %v", err)
		m.metrics.AllocationFailed(err.Error())
		return nil, err
	}
	m.mode = mode
	m.client = alloc.Client
	m.server = alloc.Server
	m.state = State(mode.State())
	m.mu.Unlock()

	m.metrics.SessionStarted(string(mode))
	if alloc.Server != nil {
		m.logger.Info("session started in %s mode on port %d", mode, alloc.Server.Port())
	} else {
		m.logger.Info("session started in %s mode", mode)
	}
	return alloc.Client, nil
}

func (m *Manager) allocate(ctx context.Context, opts StartOptions) (core.Mode, core.Allocation, error) {
	if m.alloc == nil {
		return "", core.Allocation{}, errors.New("session has no allocator")
	}

	pref := config.DefaultSession
	if m.cfg != nil {
		pref = m.cfg.Option(config.OptSession)
	}
	mode, err := core.Resolve(pref, m.platform)
	if err != nil {
		return "", core.Allocation{}, err
	}
	m.logger.Verbose("session preference %q resolved to %s on %s", pref, mode, m.platform.OS)

	alloc, err := core.Allocate(ctx, m.alloc, mode, core.Request{
		Cores:         opts.Cores,
		EngineVersion: opts.EngineVersion,
		Port:          opts.Port,
	}, m.logger)
	return mode, alloc, err
}

// ── Accessors ────────────────────────────────────────────────────────

// ID is the unique id of this session.
func (m *Manager) ID() string { return m.id }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mode returns the resolved mode, or "" before a successful Start.
func (m *Manager) Mode() core.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Client returns the session's client, or nil.
func (m *Manager) Client() engine.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// Server returns the paired server in client-server mode, or nil.
func (m *Manager) Server() engine.Server {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.server
}

// Owner returns the recorded owner, or "" before the first Start.
func (m *Manager) Owner() Owner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

// Metrics returns the collector the Manager reports to (may be nil).
func (m *Manager) Metrics() *metrics.Collector { return m.metrics }
