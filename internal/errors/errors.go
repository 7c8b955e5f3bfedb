// Package errors provides domain-specific error types for simlink.
//
// These types carry structured context (field, resource, teardown step,
// owner) that helps callers decide how to handle failures and gives
// better diagnostics than plain string wrapping.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotOwner             = errors.New("session is owned by a different caller")
	ErrSessionStopped       = errors.New("session has been shut down")
	ErrStartInProgress      = errors.New("session start already in progress")
	ErrNoSession            = errors.New("no default session installed")
	ErrNotConnected         = errors.New("not connected")
	ErrStandaloneDisconnect = errors.New("stand-alone clients cannot disconnect")
	ErrRuntimeShutdown      = errors.New("runtime has been shut down and cannot restart")
	ErrServerExited         = errors.New("server process exited before reporting a port")
	ErrUnknownModel         = errors.New("model not found")
	ErrTimeout              = errors.New("operation timed out")
)

// ── Structured error types ───────────────────────────────────────────

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ConcurrencyError is returned when a session is used by a caller other
// than the one that first started it.
type ConcurrencyError struct {
	Owner  string // recorded owner identity
	Caller string // identity of the rejected caller
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("cannot access session from caller %s: owned by %s", e.Caller, e.Owner)
}

func (e *ConcurrencyError) Unwrap() error { return ErrNotOwner }

// ResourceError represents a failure to construct or operate an engine
// resource (server process, client connection, runtime).
type ResourceError struct {
	Resource string // "server", "client", "runtime", "installation"
	Op       string // "start", "connect", "stop", ...
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Resource, e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// TeardownError records a failure in one step of session shutdown.
// It is logged and collected, never returned to the caller as an error.
type TeardownError struct {
	Step string // "disconnect", "stop-server", "shutdown-runtime"
	Err  error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown %s: %v", e.Step, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// Resource creates a ResourceError.
func Resource(resource, op string, err error) *ResourceError {
	return &ResourceError{Resource: resource, Op: op, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsConcurrency reports whether err is (or wraps) a ConcurrencyError.
func IsConcurrency(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}

// classifyRetryable inspects standard library error types.  A refused
// connection is retryable: the peer may not be accepting yet.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return true
		}
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use simlink/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
