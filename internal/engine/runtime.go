package engine

import (
	"runtime"
	"sync"

	serrors "simlink/internal/errors"
	"simlink/util"
)

// LocalRuntime is the in-process host every client needs: embedded
// clients run the engine's model store inside it, and networked clients
// are supervised by it.  It starts once and cannot be restarted after
// Shutdown within the same process.
type LocalRuntime struct {
	mu      sync.Mutex
	started bool
	down    bool
	cores   int
	store   *Store
	logger  *util.Logger
}

// NewRuntime returns a runtime that has not been started.
func NewRuntime(logger *util.Logger) *LocalRuntime {
	return &LocalRuntime{logger: logger}
}

// Start boots the runtime with the given thread budget (0 = all cores).
// Starting an already started runtime is a no-op; the first budget
// wins.
func (r *LocalRuntime) Start(cores int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.down {
		return serrors.Resource("runtime", "start", serrors.ErrRuntimeShutdown)
	}
	if r.started {
		return nil
	}
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	r.cores = cores
	r.store = NewStore()
	r.started = true
	r.logger.Verbose("runtime started with %d cores", cores)
	return nil
}

// IsStarted reports whether the runtime is up.
func (r *LocalRuntime) IsStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Shutdown releases the runtime and everything it hosts.
func (r *LocalRuntime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.store.Clear()
	r.store = nil
	r.started = false
	r.down = true
	return nil
}

// Cores is the thread budget the runtime was started with.
func (r *LocalRuntime) Cores() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cores
}

// Store returns the embedded model store, or ErrNotConnected when the
// runtime is not running.
func (r *LocalRuntime) Store() (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil, serrors.ErrNotConnected
	}
	return r.store, nil
}
