// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a simlink session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a simlink session or engine
// server.  A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	startsTotal        atomic.Int64
	redundantStarts    atomic.Int64
	rejectedStarts     atomic.Int64
	allocationFailures atomic.Int64
	teardownFailures   atomic.Int64
	connectionsActive  atomic.Int64
	connectionsTotal   atomic.Int64
	requestsServed     atomic.Int64
	errorsTotal        atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	mode         string
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionStarted records a successful allocation in the given mode.
func (c *Collector) SessionStarted(mode string) {
	if c == nil {
		return
	}
	c.startsTotal.Add(1)
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// RedundantStart records a Start that returned the existing client.
func (c *Collector) RedundantStart() {
	if c == nil {
		return
	}
	c.redundantStarts.Add(1)
}

// RejectedStart records a Start refused for a non-owner caller.
func (c *Collector) RejectedStart() {
	if c == nil {
		return
	}
	c.rejectedStarts.Add(1)
}

// AllocationFailed records a failed handle construction.
func (c *Collector) AllocationFailed(msg string) {
	if c == nil {
		return
	}
	c.allocationFailures.Add(1)
	c.RecordError(msg)
}

// TeardownFailed records a failed shutdown step.
func (c *Collector) TeardownFailed(msg string) {
	if c == nil {
		return
	}
	c.teardownFailures.Add(1)
	c.RecordError(msg)
}

// Starts returns the number of successful allocations.
func (c *Collector) Starts() int64 {
	if c == nil {
		return 0
	}
	return c.startsTotal.Load()
}

// RedundantStarts returns the number of idempotent re-entries.
func (c *Collector) RedundantStarts() int64 {
	if c == nil {
		return 0
	}
	return c.redundantStarts.Load()
}

// RejectedStarts returns the number of non-owner rejections.
func (c *Collector) RejectedStarts() int64 {
	if c == nil {
		return 0
	}
	return c.rejectedStarts.Load()
}

// AllocationFailures returns the number of failed allocations.
func (c *Collector) AllocationFailures() int64 {
	if c == nil {
		return 0
	}
	return c.allocationFailures.Load()
}

// TeardownFailures returns the number of failed teardown steps.
func (c *Collector) TeardownFailures() int64 {
	if c == nil {
		return 0
	}
	return c.teardownFailures.Load()
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// RequestServed counts one handled protocol request.
func (c *Collector) RequestServed() {
	if c == nil {
		return
	}
	c.requestsServed.Add(1)
}

// RequestsServed returns the number of handled requests.
func (c *Collector) RequestsServed() int64 {
	if c == nil {
		return 0
	}
	return c.requestsServed.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// MergeServer adds the connection and request totals an engine server
// reported when it closed.
func (c *Collector) MergeServer(s Snapshot) {
	if c == nil {
		return
	}
	c.connectionsTotal.Add(s.ConnectionsTotal)
	c.requestsServed.Add(s.RequestsServed)
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	Mode               string `json:"mode,omitempty"`
	StartsTotal        int64  `json:"starts_total"`
	RedundantStarts    int64  `json:"redundant_starts"`
	RejectedStarts     int64  `json:"rejected_starts"`
	AllocationFailures int64  `json:"allocation_failures"`
	TeardownFailures   int64  `json:"teardown_failures"`
	ConnectionsActive  int64  `json:"connections_active"`
	ConnectionsTotal   int64  `json:"connections_total"`
	RequestsServed     int64  `json:"requests_served"`
	ErrorsTotal        int64  `json:"errors_total"`
	LastError          string `json:"last_error,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:             time.Since(c.startTime).Truncate(time.Second).String(),
		Mode:               c.mode,
		StartsTotal:        c.startsTotal.Load(),
		RedundantStarts:    c.redundantStarts.Load(),
		RejectedStarts:     c.rejectedStarts.Load(),
		AllocationFailures: c.allocationFailures.Load(),
		TeardownFailures:   c.teardownFailures.Load(),
		ConnectionsActive:  c.connectionsActive.Load(),
		ConnectionsTotal:   c.connectionsTotal.Load(),
		RequestsServed:     c.requestsServed.Load(),
		ErrorsTotal:        c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
