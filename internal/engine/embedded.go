package engine

import (
	"context"
	"fmt"

	serrors "simlink/internal/errors"
)

// EmbeddedClient runs model operations directly in the local runtime.
type EmbeddedClient struct {
	rt      *LocalRuntime
	version string
}

// NewEmbeddedClient starts rt (if needed) and binds a client to it.
func NewEmbeddedClient(rt *LocalRuntime, opts ClientOptions) (*EmbeddedClient, error) {
	if err := rt.Start(opts.Cores); err != nil {
		return nil, err
	}
	return &EmbeddedClient{rt: rt, version: opts.Version}, nil
}

func (c *EmbeddedClient) String() string { return "Client(stand-alone)" }

// Port is always 0: an embedded client has no server.
func (c *EmbeddedClient) Port() int { return 0 }

func (c *EmbeddedClient) Cores() int { return c.rt.Cores() }

func (c *EmbeddedClient) Version() string { return c.version }

// Disconnect always fails; there is no connection to drop.
func (c *EmbeddedClient) Disconnect() error { return serrors.ErrStandaloneDisconnect }

func (c *EmbeddedClient) Create(_ context.Context, name string) (*Model, error) {
	s, err := c.rt.Store()
	if err != nil {
		return nil, err
	}
	return s.Create(name)
}

func (c *EmbeddedClient) Load(_ context.Context, path string) (*Model, error) {
	s, err := c.rt.Store()
	if err != nil {
		return nil, err
	}
	return s.Load(path)
}

func (c *EmbeddedClient) Save(_ context.Context, m *Model, path string) error {
	if m == nil {
		return fmt.Errorf("save: nil model")
	}
	s, err := c.rt.Store()
	if err != nil {
		return err
	}
	return s.Save(m.Tag, path)
}

func (c *EmbeddedClient) Remove(_ context.Context, m *Model) error {
	if m == nil {
		return fmt.Errorf("remove: nil model")
	}
	s, err := c.rt.Store()
	if err != nil {
		return err
	}
	return s.Remove(m.Tag)
}

func (c *EmbeddedClient) Names(_ context.Context) ([]string, error) {
	s, err := c.rt.Store()
	if err != nil {
		return nil, err
	}
	return s.Names(), nil
}
