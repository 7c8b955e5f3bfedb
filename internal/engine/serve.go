package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"simlink/internal/metrics"
	"simlink/util"
)

// statsPrefix starts the line a serving engine prints with its metrics
// snapshot when it closes.
const statsPrefix = "simlink engine stats "

// ServeOptions configures an engine server loop.
type ServeOptions struct {
	Port    int    // 0 = OS-assigned
	Cores   int    // 0 = all available
	Version string // "" = BuiltinVersion

	// Stdin is watched for a "close" line (or EOF), which ends the
	// server.  Nil disables the watch.
	Stdin io.Reader
	// Stdout receives the "listening on port N" line and, on a clean
	// close with Metrics set, the stats line.
	Stdout io.Writer

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Serve hosts a model store on a loopback port until ctx is cancelled
// or a close request arrives on Stdin.  Clients are served one at a
// time.
func Serve(ctx context.Context, opts ServeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = util.NewNopLogger()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	cores := opts.Cores
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	version := opts.Version
	if version == "" {
		version = BuiltinVersion
	}

	ln, err := net.Listen("tcp", util.LoopbackAddr(opts.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", opts.Port, err)
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.Stdin != nil {
		go watchClose(opts.Stdin, cancel, logger)
	}

	port := util.PortOf(ln.Addr())
	if _, err := fmt.Fprintf(stdout, "simlink engine %s listening on port %d\n", version, port); err != nil {
		return fmt.Errorf("announce port: %w", err)
	}

	srv := &server{
		store:   NewStore(),
		cores:   cores,
		version: version,
		logger:  logger,
		metrics: opts.Metrics,
	}

	// Close the listener and any active connection when the context
	// expires.
	go func() {
		<-ctx.Done()
		ln.Close()
		srv.closeActive()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				logger.Verbose("engine server on port %d closing", port)
				reportStats(stdout, opts.Metrics, logger)
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		logger.Verbose("client connected from %s", conn.RemoteAddr())
		srv.serveConn(ctx, conn)
	}
}

// reportStats prints the final metrics snapshot for the parent process.
func reportStats(w io.Writer, m *metrics.Collector, logger *util.Logger) {
	if m == nil {
		return
	}
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		logger.Verbose("encode stats: %v", err)
		return
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", statsPrefix, data); err != nil {
		logger.Verbose("report stats: %v", err)
	}
}

// watchClose cancels the server on a "close" line or end of input.
func watchClose(r io.Reader, cancel context.CancelFunc, logger *util.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "close" {
			logger.Verbose("close requested")
			cancel()
			return
		}
	}
	logger.Verbose("control input closed")
	cancel()
}

// ── Connection handling ──────────────────────────────────────────────

type server struct {
	store   *Store
	cores   int
	version string
	logger  *util.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	active net.Conn
}

func (s *server) closeActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Close()
	}
}

func (s *server) setActive(conn net.Conn) {
	s.mu.Lock()
	s.active = conn
	s.mu.Unlock()
}

func (s *server) serveConn(ctx context.Context, conn net.Conn) {
	s.setActive(conn)
	s.metrics.ConnectionOpened()
	defer func() {
		conn.Close()
		s.setActive(nil)
		s.metrics.ConnectionClosed()
	}()
	// The watcher may have fired between Accept and setActive.
	if ctx.Err() != nil {
		return
	}

	c := newCodec(conn)
	for {
		var req Request
		if err := c.recv(&req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Verbose("read request: %v", err)
			}
			return
		}
		s.metrics.RequestServed()

		resp := s.handle(&req)
		if err := c.send(resp); err != nil {
			s.logger.Verbose("write response: %v", err)
			return
		}
		if req.Op == OpDisconnect {
			s.logger.Verbose("client disconnected")
			return
		}
	}
}

func (s *server) handle(req *Request) *Response {
	switch req.Op {
	case OpHello:
		return &Response{OK: true, Cores: s.cores, Version: s.version}
	case OpCreate:
		m, err := s.store.Create(req.Name)
		if err != nil {
			return failure(err)
		}
		return &Response{OK: true, Model: m}
	case OpLoad:
		m, err := s.store.Load(req.Path)
		if err != nil {
			return failure(err)
		}
		return &Response{OK: true, Model: m}
	case OpSave:
		if err := s.store.Save(req.Tag, req.Path); err != nil {
			return failure(err)
		}
		return &Response{OK: true}
	case OpRemove:
		if err := s.store.Remove(req.Tag); err != nil {
			return failure(err)
		}
		return &Response{OK: true}
	case OpNames:
		return &Response{OK: true, Names: s.store.Names()}
	case OpDisconnect:
		return &Response{OK: true}
	default:
		return &Response{Error: fmt.Sprintf("unknown operation %q", req.Op), Code: codeBadRequest}
	}
}

// ── Command line ─────────────────────────────────────────────────────

// ServeMain runs the "serve" subcommand with the given arguments.
func ServeMain(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, logger *util.Logger) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	port := fs.Int("port", 0, "port to listen on (0 = OS-assigned)")
	cores := fs.Int("cores", 0, "computation threads (0 = all cores)")
	version := fs.String("engine-version", "", "engine version to report")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if *port < 0 || *port > 65535 {
		return fmt.Errorf("serve: port %d out of range", *port)
	}

	return Serve(ctx, ServeOptions{
		Port:    *port,
		Cores:   *cores,
		Version: *version,
		Stdin:   stdin,
		Stdout:  stdout,
		Logger:  logger,
		Metrics: metrics.New(),
	})
}
