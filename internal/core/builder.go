package core

import (
	"context"
	"fmt"

	"simlink/internal/engine"
	"simlink/util"
)

// Allocator constructs the engine handles a mode needs.
// *engine.Launcher is the production implementation.
type Allocator interface {
	NewServer(ctx context.Context, opts engine.ServerOptions) (engine.Server, error)
	NewClient(ctx context.Context, opts engine.ClientOptions) (engine.Client, error)
}

// Request carries the caller's start options down to the allocator.
type Request struct {
	Cores         int    // 0 = all available
	EngineVersion string // "" = latest installed
	Port          int    // client-server only; 0 = OS-assigned
}

// Allocation is the set of handles produced for one mode.  On failure
// it may be partial: a Server whose Client could not be built is still
// returned so the caller can account for it.
type Allocation struct {
	Client engine.Client
	Server engine.Server
}

// Allocate builds the handles for mode.  This is the single dispatch
// point for handle construction.  Errors from the allocator are
// returned unmodified.
func Allocate(ctx context.Context, a Allocator, mode Mode, req Request, logger *util.Logger) (Allocation, error) {
	switch mode {
	case Standalone:
		return allocateStandalone(ctx, a, req, logger)
	case ClientServer:
		return allocateClientServer(ctx, a, req, logger)
	default:
		return Allocation{}, fmt.Errorf("unknown mode %q", mode)
	}
}

// ── mode allocators ──────────────────────────────────────────────────

func allocateStandalone(ctx context.Context, a Allocator, req Request, logger *util.Logger) (Allocation, error) {
	logger.Verbose("starting stand-alone client")
	client, err := a.NewClient(ctx, engine.ClientOptions{
		Cores:   req.Cores,
		Version: req.EngineVersion,
	})
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{Client: client}, nil
}

// allocateClientServer starts the Server first and only then builds a
// Client for the port the Server actually bound.
func allocateClientServer(ctx context.Context, a Allocator, req Request, logger *util.Logger) (Allocation, error) {
	logger.Verbose("starting server (cores=%d, version=%q, port=%d)", req.Cores, req.EngineVersion, req.Port)
	server, err := a.NewServer(ctx, engine.ServerOptions{
		Cores:   req.Cores,
		Version: req.EngineVersion,
		Port:    req.Port,
	})
	if err != nil {
		return Allocation{}, err
	}

	port := server.Port()
	if port <= 0 {
		return Allocation{Server: server}, fmt.Errorf("server reported invalid port %d", port)
	}

	logger.Verbose("connecting client to port %d", port)
	client, err := a.NewClient(ctx, engine.ClientOptions{
		Cores:   req.Cores,
		Version: req.EngineVersion,
		Port:    port,
	})
	if err != nil {
		return Allocation{Server: server}, err
	}
	return Allocation{Client: client, Server: server}, nil
}
