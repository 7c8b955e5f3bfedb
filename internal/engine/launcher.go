package engine

import (
	"context"
	"time"

	"simlink/internal/metrics"
	"simlink/internal/retry"
	"simlink/util"
)

// LauncherConfig holds what the Launcher needs to build handles.
type LauncherConfig struct {
	// Executable overrides installation discovery when set.
	Executable string
	// Installs lists the engine releases known on this host.
	Installs []Installation
	// Args and Env are passed to every server process.
	Args []string
	Env  []string

	GracePeriod    time.Duration
	StartTimeout   time.Duration
	ConnectTimeout time.Duration

	// Backoff paces client connection attempts (nil = retry.DefaultBackoff).
	Backoff *retry.Backoff
	// Metrics collects the totals reported by server processes.
	Metrics *metrics.Collector
}

// Launcher constructs engine handles: server processes, clients and the
// shared in-process runtime.
type Launcher struct {
	cfg    LauncherConfig
	rt     *LocalRuntime
	logger *util.Logger
}

// NewLauncher returns a launcher with its own (not yet started) runtime.
func NewLauncher(cfg LauncherConfig, logger *util.Logger) *Launcher {
	if cfg.Backoff == nil {
		cfg.Backoff = retry.DefaultBackoff()
	}
	return &Launcher{cfg: cfg, rt: NewRuntime(logger.Named("runtime")), logger: logger}
}

// Runtime is the in-process runtime every client of this launcher uses.
func (l *Launcher) Runtime() *LocalRuntime { return l.rt }

// NewServer starts an engine server process.
func (l *Launcher) NewServer(ctx context.Context, opts ServerOptions) (Server, error) {
	exe := l.cfg.Executable
	if exe == "" {
		inst, err := SelectInstallation(l.cfg.Installs, opts.Version)
		if err != nil {
			return nil, err
		}
		exe = inst.Executable
		opts.Version = inst.Version
	}

	srv, err := StartServer(ctx, opts, ProcessConfig{
		Executable:   exe,
		Args:         l.cfg.Args,
		Env:          l.cfg.Env,
		GracePeriod:  l.cfg.GracePeriod,
		StartTimeout: l.cfg.StartTimeout,
		Metrics:      l.cfg.Metrics,
	}, l.logger.Named("server"))
	if err != nil {
		return nil, err
	}
	return srv, nil
}

// NewClient returns an embedded client for port 0 and a connected
// remote client otherwise.
func (l *Launcher) NewClient(ctx context.Context, opts ClientOptions) (Client, error) {
	if opts.Port == 0 {
		c, err := NewEmbeddedClient(l.rt, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	c, err := Connect(ctx, l.rt, opts, DialConfig{
		Backoff: l.cfg.Backoff,
		Timeout: l.cfg.ConnectTimeout,
	}, l.logger.Named("client"))
	if err != nil {
		return nil, err
	}
	return c, nil
}
