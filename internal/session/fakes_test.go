package session

import (
	"context"
	"sync"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"simlink/internal/core"
	"simlink/internal/engine"
	"simlink/internal/metrics"
	"simlink/util"
)

// events is an ordered, concurrency-safe log of collaborator calls.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.log = append(e.log, s)
	e.mu.Unlock()
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeRuntime struct {
	ev          *events
	mu          sync.Mutex
	started     bool
	shutdownErr error
}

func (r *fakeRuntime) start() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
}

func (r *fakeRuntime) IsStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *fakeRuntime) Shutdown() error {
	r.ev.add("shutdown-runtime")
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()
	return r.shutdownErr
}

type fakeClient struct {
	engine.Client // model operations are not exercised here
	ev            *events
	port          int
	disconnectErr error
	panicOnPort   bool
}

func (c *fakeClient) Port() int {
	if c.panicOnPort {
		panic("port lookup exploded")
	}
	return c.port
}

func (c *fakeClient) Disconnect() error {
	c.ev.add("disconnect")
	return c.disconnectErr
}

type fakeServer struct {
	ev      *events
	port    int
	mu      sync.Mutex
	running bool
	stopErr error
}

func (s *fakeServer) Port() int { return s.port }

func (s *fakeServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *fakeServer) Stop() error {
	s.ev.add("stop-server")
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return s.stopErr
}

// fakeAllocator builds fake handles and records the order it was asked
// for them.  A non-nil gate blocks NewServer/NewClient until closed.
type fakeAllocator struct {
	ev         *events
	rt         *fakeRuntime
	osPort     int // port reported for a server asked to use 0
	serverErr  error
	clientErr  error
	disconnect error
	stopErr    error
	gate       chan struct{}
	entered    chan struct{}

	mu      sync.Mutex
	servers []*fakeServer
	clients []*fakeClient
}

func (a *fakeAllocator) wait() {
	if a.entered != nil {
		select {
		case a.entered <- struct{}{}:
		default:
		}
	}
	if a.gate != nil {
		<-a.gate
	}
}

func (a *fakeAllocator) NewServer(_ context.Context, opts engine.ServerOptions) (engine.Server, error) {
	a.wait()
	a.ev.add("new-server")
	if a.serverErr != nil {
		return nil, a.serverErr
	}
	port := opts.Port
	if port == 0 {
		port = a.osPort
	}
	s := &fakeServer{ev: a.ev, port: port, running: true, stopErr: a.stopErr}
	a.mu.Lock()
	a.servers = append(a.servers, s)
	a.mu.Unlock()
	return s, nil
}

func (a *fakeAllocator) NewClient(_ context.Context, opts engine.ClientOptions) (engine.Client, error) {
	if opts.Port == 0 {
		a.wait()
	}
	a.ev.add("new-client")
	if a.clientErr != nil {
		return nil, a.clientErr
	}
	a.rt.start()
	c := &fakeClient{ev: a.ev, port: opts.Port, disconnectErr: a.disconnect}
	a.mu.Lock()
	a.clients = append(a.clients, c)
	a.mu.Unlock()
	return c, nil
}

func (a *fakeAllocator) allocations() (servers, clients int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.servers), len(a.clients)
}

// staticConfig is a Provider with a fixed session preference.
type staticConfig string

func (c staticConfig) Option(name string) string {
	if name == "session" {
		return string(c)
	}
	return ""
}

// harness bundles a Manager with its fakes and an observed logger.
type harness struct {
	m     *Manager
	ev    *events
	rt    *fakeRuntime
	alloc *fakeAllocator
	logs  *observer.ObservedLogs
}

func newHarness(pref, hostOS string, tweak func(a *fakeAllocator)) *harness {
	ev := &events{}
	rt := &fakeRuntime{ev: ev}
	alloc := &fakeAllocator{ev: ev, rt: rt, osPort: 49152}
	if tweak != nil {
		tweak(alloc)
	}
	obs, logs := observer.New(zapcore.DebugLevel)
	m := New(Options{
		Config:    staticConfig(pref),
		Allocator: alloc,
		Runtime:   rt,
		Platform:  core.Platform{OS: hostOS},
		Logger:    util.NewLoggerWithCore(int(util.LogNormal), obs),
		Metrics:   metrics.New(),
	})
	return &harness{m: m, ev: ev, rt: rt, alloc: alloc, logs: logs}
}
