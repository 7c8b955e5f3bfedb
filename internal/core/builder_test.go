package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simlink/internal/engine"
	serrors "simlink/internal/errors"
	"simlink/util"
)

// ── fakes ────────────────────────────────────────────────────────────

type fakeClient struct {
	engine.Client // unused model operations
	port          int
	opts          engine.ClientOptions
}

func (c *fakeClient) Port() int { return c.port }

type fakeServer struct {
	port int
}

func (s *fakeServer) Port() int     { return s.port }
func (s *fakeServer) Running() bool { return true }
func (s *fakeServer) Stop() error   { return nil }

// recordingAllocator logs the order of constructor calls.
type recordingAllocator struct {
	calls      []string
	serverPort int // port the server reports when asked for 0
	serverErr  error
	clientErr  error
	serverOpts engine.ServerOptions
	clientOpts engine.ClientOptions
}

func (a *recordingAllocator) NewServer(_ context.Context, opts engine.ServerOptions) (engine.Server, error) {
	a.calls = append(a.calls, "server")
	a.serverOpts = opts
	if a.serverErr != nil {
		return nil, a.serverErr
	}
	port := opts.Port
	if port == 0 {
		port = a.serverPort
	}
	return &fakeServer{port: port}, nil
}

func (a *recordingAllocator) NewClient(_ context.Context, opts engine.ClientOptions) (engine.Client, error) {
	a.calls = append(a.calls, "client")
	a.clientOpts = opts
	if a.clientErr != nil {
		return nil, a.clientErr
	}
	return &fakeClient{port: opts.Port, opts: opts}, nil
}

// ── tests ────────────────────────────────────────────────────────────

// TestAllocate_Standalone verifies a single embedded client is built.
func TestAllocate_Standalone(t *testing.T) {
	a := &recordingAllocator{}

	alloc, err := Allocate(context.Background(), a, Standalone, Request{Cores: 2, EngineVersion: "6.1"}, util.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"client"}, a.calls)
	assert.Nil(t, alloc.Server)
	require.NotNil(t, alloc.Client)
	assert.Equal(t, 0, alloc.Client.Port())
	assert.Equal(t, engine.ClientOptions{Cores: 2, Version: "6.1"}, a.clientOpts)
}

// TestAllocate_ClientServerOrder verifies the server is started before
// the client and the client uses the server's port.
func TestAllocate_ClientServerOrder(t *testing.T) {
	a := &recordingAllocator{}

	alloc, err := Allocate(context.Background(), a, ClientServer, Request{Cores: 1, Port: 2036}, util.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"server", "client"}, a.calls)
	assert.Equal(t, engine.ServerOptions{Cores: 1, Port: 2036}, a.serverOpts)
	assert.Equal(t, 2036, alloc.Server.Port())
	assert.Equal(t, 2036, alloc.Client.Port())
}

// TestAllocate_OSAssignedPort verifies that port 0 is resolved by the
// server before the client is configured.
func TestAllocate_OSAssignedPort(t *testing.T) {
	a := &recordingAllocator{serverPort: 49152}

	alloc, err := Allocate(context.Background(), a, ClientServer, Request{}, util.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, a.serverOpts.Port)
	assert.Equal(t, 49152, a.clientOpts.Port)
	assert.Equal(t, alloc.Server.Port(), alloc.Client.Port())
}

// TestAllocate_ServerFailure verifies the error propagates unmodified
// and no client is attempted.
func TestAllocate_ServerFailure(t *testing.T) {
	boom := serrors.Resource("server", "start", errors.New("no license"))
	a := &recordingAllocator{serverErr: boom}

	alloc, err := Allocate(context.Background(), a, ClientServer, Request{}, util.NewNopLogger())
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"server"}, a.calls)
	assert.Nil(t, alloc.Server)
	assert.Nil(t, alloc.Client)
}

// TestAllocate_ClientFailureKeepsServer verifies a partial allocation
// still reports the started server.
func TestAllocate_ClientFailureKeepsServer(t *testing.T) {
	boom := errors.New("connection refused")
	a := &recordingAllocator{serverPort: 5000, clientErr: boom}

	alloc, err := Allocate(context.Background(), a, ClientServer, Request{}, util.NewNopLogger())
	assert.Same(t, boom, err)
	assert.Nil(t, alloc.Client)
	require.NotNil(t, alloc.Server)
	assert.Equal(t, 5000, alloc.Server.Port())
}

// TestAllocate_InvalidServerPort verifies a server that reports no port
// never gets a client.
func TestAllocate_InvalidServerPort(t *testing.T) {
	a := &recordingAllocator{serverPort: 0}

	alloc, err := Allocate(context.Background(), a, ClientServer, Request{}, util.NewNopLogger())
	assert.Error(t, err)
	assert.Equal(t, []string{"server"}, a.calls)
	assert.NotNil(t, alloc.Server)
}

// TestAllocate_UnknownMode verifies nothing is constructed.
func TestAllocate_UnknownMode(t *testing.T) {
	a := &recordingAllocator{}

	_, err := Allocate(context.Background(), a, Mode("bogus"), Request{}, util.NewNopLogger())
	assert.Error(t, err)
	assert.Empty(t, a.calls)
}
