package session

import (
	"fmt"

	"simlink/internal/engine"
	serrors "simlink/internal/errors"
)

// Teardown step names, in execution order.
const (
	StepDisconnect      = "disconnect"
	StepStopServer      = "stop-server"
	StepShutdownRuntime = "shutdown-runtime"
)

// Report describes what a Shutdown did.
type Report struct {
	Steps  []string // steps attempted, in order
	Errors []error  // one *errors.TeardownError per failed step
}

// Err joins the step failures, or returns nil if every step succeeded.
func (r Report) Err() error {
	return serrors.Join(r.Errors...)
}

// Shutdown releases everything the session acquired, in order:
// disconnect a networked client, stop the server (including any server
// left behind by a failed start), then shut the runtime down.  A failing
// step is logged and recorded and the remaining steps still run.
//
// Shutdown runs at most once; later calls return the first Report.
// With nothing started it does nothing.
func (m *Manager) Shutdown() Report {
	m.shutdownOnce.Do(func() {
		m.report = m.shutdown()
	})
	return m.report
}

func (m *Manager) shutdown() Report {
	m.mu.Lock()
	client := m.client
	servers := append(append([]engine.Server{}, m.orphans...), m.server)
	m.state = StateStopped
	m.mu.Unlock()

	var r Report
	m.teardown(&r, client, servers, m.rt)
	if len(r.Steps) > 0 {
		m.logger.Info("session shut down (%d steps, %d failed)", len(r.Steps), len(r.Errors))
	}
	return r
}

func (m *Manager) teardown(r *Report, client engine.Client, servers []engine.Server, rt engine.Runtime) {
	if client != nil {
		m.step(r, StepDisconnect, func() bool { return client.Port() != 0 }, client.Disconnect)
	}
	for _, s := range servers {
		if s != nil {
			m.step(r, StepStopServer, s.Running, s.Stop)
		}
	}
	if rt != nil {
		m.step(r, StepShutdownRuntime, rt.IsStarted, rt.Shutdown)
	}
}

// step runs fn when applies reports true.  Errors and panics from
// either are recorded as a TeardownError.
func (m *Manager) step(r *Report, name string, applies func() bool, fn func() error) {
	ran := false
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		if !applies() {
			return nil
		}
		ran = true
		return fn()
	}()
	if ran || err != nil {
		r.Steps = append(r.Steps, name)
	}
	if err == nil {
		m.logger.Verbose("teardown %s done", name)
		return
	}
	te := &serrors.TeardownError{Step: name, Err: err}
	r.Errors = append(r.Errors, te)
	m.logger.Error("%v", te)
	m.metrics.TeardownFailed(te.Error())
}
