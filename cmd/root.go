// Package cmd wires up the CLI flags and dispatches to the session
// manager or the engine server loop.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"simlink/config"
	"simlink/internal/core"
	"simlink/internal/engine"
	"simlink/internal/exithook"
	"simlink/internal/metrics"
	"simlink/internal/session"
	"simlink/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X simlink/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the requested subcommand.  Teardown is
// registered on hooks; the caller fires them once Execute returns.
func Execute(ctx context.Context, args []string, hooks *exithook.Registry) error {
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			return runServe(ctx, args[1:])
		case "start":
			if len(args) == 1 {
				return runStart(ctx, nil, hooks)
			}
			args = args[1:]
		}
	} else {
		printUsage(newStartFlags(&startFlags{}))
		return nil
	}
	return runStart(ctx, args, hooks)
}

// ── start ────────────────────────────────────────────────────────────

type startFlags struct {
	configPath    string
	session       string
	cores         int
	engineVersion string
	port          int
	logFormat     string
	verbose       int
	showMetrics   bool
	dryRun        bool
	showVersion   bool
	showHelp      bool
}

func newStartFlags(f *startFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("simlink", flag.ContinueOnError)

	// ── session ──────────────────────────────────────────────────
	fs.StringVar(&f.configPath, "config", config.DefaultConfigFile, "YAML config file")
	fs.StringVarP(&f.session, "session", "s", config.DefaultSession,
		"Session type: stand-alone, client-server or platform-dependent")
	fs.IntVarP(&f.cores, "cores", "c", 0, "Computation threads (0 = all cores)")
	fs.StringVar(&f.engineVersion, "engine-version", "", "Engine release to use (default: latest)")
	fs.IntVarP(&f.port, "port", "p", 0, "Server port in client-server mode (0 = OS-assigned)")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "Log format: auto, text or json")
	fs.CountVarP(&f.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&f.showMetrics, "metrics", false, "Print session metrics as JSON on exit")

	fs.BoolVar(&f.dryRun, "dry-run", false, "Validate configuration, print the resolved mode and exit")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&f.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }
	return fs
}

func runStart(ctx context.Context, args []string, hooks *exithook.Registry) error {
	var f startFlags
	fs := newStartFlags(&f)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.showHelp {
		printUsage(fs)
		return nil
	}
	if f.showVersion {
		fmt.Printf("simlink %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	cfg, err := buildConfig(fs, &f)
	if err != nil {
		return err
	}

	mode, err := core.Resolve(cfg.Session, core.HostPlatform())
	if err != nil {
		return err
	}
	if f.dryRun {
		fmt.Printf("session: %s (preference %s, host %s)\n", mode, cfg.Session, core.HostPlatform().OS)
		return nil
	}

	logger := util.NewLoggerTo(os.Stderr, cfg.Logging.Verbosity, cfg.Logging.Format)
	hooks.Register("flush-logs", func() { _ = logger.Sync() })

	var stats *metrics.Collector
	if f.showMetrics {
		stats = metrics.New()
		hooks.Register("metrics", func() { fmt.Fprintln(os.Stderr, stats.JSON()) })
	}

	launcher := engine.NewLauncher(launcherConfig(cfg, stats), logger.Named("engine"))
	m := session.New(session.Options{
		Config:    cfg,
		Allocator: launcher,
		Runtime:   launcher.Runtime(),
		Logger:    logger,
		Metrics:   stats,
	})
	session.SetDefault(m)
	hooks.Register("session", func() { m.Shutdown() })

	client, err := m.Start(ctx, session.StartOptions{
		Cores:         cfg.Cores,
		EngineVersion: cfg.EngineVersion,
		Port:          cfg.Port,
	})
	if err != nil {
		return err
	}

	fmt.Printf("session %s: %s, engine %s, %d cores", m.ID(), m.Mode(), client.Version(), client.Cores())
	if client.Port() != 0 {
		fmt.Printf(", port %d", client.Port())
	}
	fmt.Println()

	<-ctx.Done()
	logger.Info("interrupted, shutting down")
	return nil
}

// buildConfig layers CLI flags over defaults, file and environment.
func buildConfig(fs *flag.FlagSet, f *startFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	options := map[string]string{
		"session":        f.session,
		"cores":          strconv.Itoa(f.cores),
		"engine-version": f.engineVersion,
		"port":           strconv.Itoa(f.port),
	}
	for name, value := range options {
		if fs.Changed(name) {
			if err := cfg.SetOption(name, value); err != nil {
				return nil, err
			}
		}
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	cfg.Logging.Verbosity += f.verbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func launcherConfig(cfg *config.Config, stats *metrics.Collector) engine.LauncherConfig {
	installs := make([]engine.Installation, len(cfg.Engine.Installs))
	for i, in := range cfg.Engine.Installs {
		installs[i] = engine.Installation{Version: in.Version, Executable: in.Executable}
	}
	return engine.LauncherConfig{
		Executable:     cfg.Engine.Executable,
		Installs:       installs,
		GracePeriod:    cfg.Engine.GracePeriod,
		StartTimeout:   cfg.Engine.StartTimeout,
		ConnectTimeout: cfg.Engine.ConnectTimeout,
		Metrics:        stats,
	}
}

// ── serve ────────────────────────────────────────────────────────────

func runServe(ctx context.Context, args []string) error {
	verbosity := config.DefaultVerbosity
	if v, err := strconv.Atoi(os.Getenv(config.EnvPrefix + "_LOGGING_VERBOSITY")); err == nil {
		verbosity = v
	}
	logger := util.NewLoggerTo(os.Stderr, verbosity, util.FormatText).Named("serve")
	defer logger.Sync() //nolint:errcheck
	return engine.ServeMain(ctx, args, os.Stdin, os.Stdout, logger)
}

// ── helpers ──────────────────────────────────────────────────────────

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `simlink – simulation session manager v%s

Starts one simulation session per process, either embedding the engine
or driving a local engine server, and tears it down on exit.

Usage:
  simlink                                      Show this help
  simlink start [options]                      Start a session with defaults
  simlink [options]                            Start a session
  simlink serve [--port N] [--cores N]         Run an engine server

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  simlink --session client-server --port 2036  Server on a fixed port
  simlink -s stand-alone -c 4                  Embedded engine, 4 threads
  simlink --dry-run                            Show the resolved mode
  SIMLINK_SESSION=client-server simlink -v     Mode from the environment
`)
}
