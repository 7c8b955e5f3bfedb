// Package exithook runs registered teardown functions once when the
// process exits normally or on a graceful termination signal.
//
// Go has no atexit: os.Exit skips deferred calls.  Programs register
// hooks here and leave through Exit (or call Run themselves) so the
// hooks fire exactly once.
package exithook

import (
	"os"
	"sync"

	"simlink/util"
)

type hook struct {
	name string
	fn   func()
}

// Registry is an ordered set of exit hooks.
type Registry struct {
	mu     sync.Mutex
	hooks  []hook
	ran    bool
	once   sync.Once
	logger *util.Logger
	exit   func(int)
}

// New returns an empty registry.  A nil logger discards hook failures.
func New(logger *util.Logger) *Registry {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	return &Registry{logger: logger, exit: os.Exit}
}

// Register adds fn under name.  Hooks run in reverse registration
// order.  Registering after Run has started is ignored and reported as
// false.
func (r *Registry) Register(name string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ran {
		r.logger.Warn("exit hook %q registered after exit hooks ran, ignoring", name)
		return false
	}
	r.hooks = append(r.hooks, hook{name: name, fn: fn})
	return true
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Run fires every hook once, last registered first.  A panicking hook
// is logged and the rest still run.  Later calls do nothing.
func (r *Registry) Run() {
	r.once.Do(func() {
		r.mu.Lock()
		r.ran = true
		hooks := r.hooks
		r.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			r.call(hooks[i])
		}
	})
}

func (r *Registry) call(h hook) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("exit hook %s: %v", h.name, p)
		}
	}()
	r.logger.Debug("running exit hook %s", h.name)
	h.fn()
}

// Exit runs the hooks and terminates the process with code.
func (r *Registry) Exit(code int) {
	r.Run()
	r.exit(code)
}

// ── Process-wide registry ────────────────────────────────────────────

var std = New(nil)

// Default returns the process-wide registry.
func Default() *Registry { return std }

// Register adds fn to the process-wide registry.
func Register(name string, fn func()) bool { return std.Register(name, fn) }

// Run fires the process-wide hooks.
func Run() { std.Run() }

// Exit fires the process-wide hooks and exits with code.
func Exit(code int) { std.Exit(code) }
