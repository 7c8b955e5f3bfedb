package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	serrors "simlink/internal/errors"
	"simlink/internal/metrics"
	"simlink/util"
)

// portLine matches the line a serving engine prints once it accepts
// connections.
var portLine = regexp.MustCompile(`listening on port (\d+)`)

// ProcessConfig describes how to launch an engine server process.
type ProcessConfig struct {
	// Executable is the program to run.  Its "serve" subcommand must
	// print "listening on port N" on stdout once ready.
	Executable string
	// Args are placed before the "serve" subcommand.
	Args []string
	// Env is appended to the current environment.
	Env []string
	// GracePeriod is how long Stop waits after asking the server to
	// close before killing it.
	GracePeriod time.Duration
	// StartTimeout bounds the wait for the port line (0 = no limit
	// beyond the caller's context).
	StartTimeout time.Duration
	// Metrics receives the connection and request totals the server
	// reports when it closes.
	Metrics *metrics.Collector
}

// ProcessServer is an engine server running as a child process.
type ProcessServer struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	port    int
	cores   int
	version string
	grace   time.Duration
	logger  *util.Logger
	metrics *metrics.Collector

	done    chan struct{} // closed once the process has been reaped
	exitErr error

	mu      sync.Mutex
	stopped bool
}

// StartServer launches the server process and blocks until it reports
// its port.  With opts.Port 0 the operating system picks the port and
// the server reports the actual value.
func StartServer(ctx context.Context, opts ServerOptions, pc ProcessConfig, logger *util.Logger) (*ProcessServer, error) {
	if pc.Executable == "" {
		return nil, serrors.Resource("server", "start", errors.New("no engine executable configured"))
	}

	args := append([]string{}, pc.Args...)
	args = append(args, "serve", "--port", strconv.Itoa(opts.Port), "--cores", strconv.Itoa(opts.Cores))
	if opts.Version != "" {
		args = append(args, "--engine-version", opts.Version)
	}
	cmd := exec.Command(pc.Executable, args...)
	cmd.Env = append(os.Environ(), pc.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, serrors.Resource("server", "start", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, serrors.Resource("server", "start", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, serrors.Resource("server", "start", err)
	}

	logger.Verbose("starting engine server: %s %v", pc.Executable, args)
	if err := cmd.Start(); err != nil {
		return nil, serrors.Resource("server", "start", err)
	}

	s := &ProcessServer{
		cmd:     cmd,
		stdin:   stdin,
		cores:   opts.Cores,
		version: opts.Version,
		grace:   pc.GracePeriod,
		logger:  logger,
		metrics: pc.Metrics,
		done:    make(chan struct{}),
	}

	portCh := make(chan int, 1)
	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		s.scanStdout(stdout, portCh)
	}()
	go func() {
		defer pipes.Done()
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			logger.Verbose("server: %s", sc.Text())
		}
	}()
	// Pipes must be drained before Wait closes them.
	go func() {
		pipes.Wait()
		s.exitErr = cmd.Wait()
		close(s.done)
	}()

	var timeout <-chan time.Time
	if pc.StartTimeout > 0 {
		t := time.NewTimer(pc.StartTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case port := <-portCh:
		s.port = port
	case <-s.done:
		select {
		case port := <-portCh:
			s.port = port
		default:
			return nil, serrors.Resource("server", "start", fmt.Errorf("%w: %v", serrors.ErrServerExited, s.exitErr))
		}
	case <-ctx.Done():
		s.kill()
		return nil, serrors.Resource("server", "start", ctx.Err())
	case <-timeout:
		s.kill()
		return nil, serrors.Resource("server", "start",
			fmt.Errorf("no port reported within %s: %w", pc.StartTimeout, serrors.ErrTimeout))
	}

	logger.Info("engine server started on port %d (pid %d)", s.port, cmd.Process.Pid)
	return s, nil
}

func (s *ProcessServer) scanStdout(r io.Reader, portCh chan<- int) {
	reported := false
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !reported {
			if m := portLine.FindStringSubmatch(line); m != nil {
				if port, err := strconv.Atoi(m[1]); err == nil && port > 0 {
					portCh <- port
					reported = true
				}
			}
		}
		if data, ok := strings.CutPrefix(line, statsPrefix); ok {
			s.mergeStats(data)
			continue
		}
		s.logger.Debug("server: %s", line)
	}
}

func (s *ProcessServer) mergeStats(data string) {
	var snap metrics.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		s.logger.Verbose("server on port %d sent unreadable stats: %v", s.port, err)
		return
	}
	s.logger.Verbose("server served %d connections, %d requests", snap.ConnectionsTotal, snap.RequestsServed)
	s.metrics.MergeServer(snap)
}

func (s *ProcessServer) String() string {
	return fmt.Sprintf("Server(port=%d)", s.port)
}

// Port is the port the server listens on.
func (s *ProcessServer) Port() int { return s.port }

func (s *ProcessServer) Cores() int { return s.cores }

func (s *ProcessServer) Version() string { return s.version }

// PID is the server's process id.
func (s *ProcessServer) PID() int { return s.cmd.Process.Pid }

// Running reports whether the server process is still alive.
func (s *ProcessServer) Running() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	return processAlive(s.cmd.Process.Pid)
}

// Stop asks the server to close and waits up to the grace period for it
// to exit, then kills it.  Stopping an already stopped server logs a
// warning and succeeds.
func (s *ProcessServer) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Warn("server on port %d already stopped", s.port)
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	default:
	}

	s.logger.Verbose("stopping engine server on port %d", s.port)
	if _, err := io.WriteString(s.stdin, "close\n"); err != nil {
		s.logger.Debug("writing close to server: %v", err)
	}
	s.stdin.Close()

	if s.grace > 0 {
		t := time.NewTimer(s.grace)
		defer t.Stop()
		select {
		case <-s.done:
			return nil
		case <-t.C:
		}
		s.logger.Warn("server on port %d did not exit within %s, killing it", s.port, s.grace)
	}

	if err := s.kill(); err != nil {
		return serrors.Resource("server", "stop", err)
	}
	return nil
}

// kill terminates the process and waits for it to be reaped.
func (s *ProcessServer) kill() error {
	err := s.cmd.Process.Kill()
	<-s.done
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
