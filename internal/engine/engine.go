// Package engine provides the handles a session allocates: the Client
// that issues model operations, the optional Server process it connects
// to, and the in-process Runtime that hosts embedded clients.
//
// The session layer only depends on the Client, Server and Runtime
// interfaces.  The concrete types here are a small local engine: an
// in-memory model store reachable either directly (EmbeddedClient) or
// over a loopback TCP connection to a "simlink serve" process
// (RemoteClient + ProcessServer).
package engine

import "context"

// Client issues model operations against the engine.
type Client interface {
	// Port is the server port the client is connected to, or 0 for an
	// embedded (or disconnected) client.
	Port() int
	// Cores is the computation-thread budget granted by the engine.
	Cores() int
	// Version is the engine release the client talks to.
	Version() string
	// Disconnect drops the server connection.  Embedded clients cannot
	// disconnect.
	Disconnect() error

	Create(ctx context.Context, name string) (*Model, error)
	Load(ctx context.Context, path string) (*Model, error)
	Save(ctx context.Context, m *Model, path string) error
	Remove(ctx context.Context, m *Model) error
	Names(ctx context.Context) ([]string, error)
}

// Server is a local engine server process bound to a port.
type Server interface {
	Port() int
	Running() bool
	Stop() error
}

// Runtime is the in-process environment hosting embedded clients.
type Runtime interface {
	IsStarted() bool
	Shutdown() error
}

// ServerOptions are the arguments a Server is constructed with.
type ServerOptions struct {
	Cores   int    // 0 = all available
	Version string // "" = latest installed
	Port    int    // 0 = OS-assigned
}

// ClientOptions are the arguments a Client is constructed with.  Port 0
// asks for an embedded client.
type ClientOptions struct {
	Cores   int
	Version string
	Port    int
}
