package engine

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	serrors "simlink/internal/errors"
	"simlink/internal/retry"
	"simlink/internal/transport"
	"simlink/util"
)

// DialConfig controls how a RemoteClient reaches its server.
type DialConfig struct {
	// Dialer opens the connection (default: a TCPDialer with Timeout).
	Dialer transport.Dialer
	// Backoff paces connection attempts while the server comes up.
	// Nil means a single attempt.
	Backoff *retry.Backoff
	// Timeout bounds the hello exchange and each later round trip.
	// Zero means no deadline beyond the caller's context.
	Timeout time.Duration
}

// RemoteClient talks to an engine server over a loopback connection.
type RemoteClient struct {
	rt      *LocalRuntime
	timeout time.Duration
	logger  *util.Logger

	mu      sync.Mutex
	conn    net.Conn
	codec   *codec
	port    int
	cores   int
	version string
}

// Connect starts rt (networked clients still need the runtime) and
// connects to the server on opts.Port.  Refused connections are retried
// per dc.Backoff; any other failure stops immediately.
func Connect(ctx context.Context, rt *LocalRuntime, opts ClientOptions, dc DialConfig, logger *util.Logger) (*RemoteClient, error) {
	if opts.Port <= 0 {
		return nil, serrors.Resource("client", "connect", fmt.Errorf("invalid server port %d", opts.Port))
	}
	if err := rt.Start(opts.Cores); err != nil {
		return nil, err
	}

	dialer := dc.Dialer
	if dialer == nil {
		dialer = &transport.TCPDialer{Timeout: dc.Timeout}
	}
	addr := util.LoopbackAddr(opts.Port)
	backoff := retry.Backoff{MaxAttempts: 1}
	if dc.Backoff != nil {
		backoff = *dc.Backoff
	}
	onRetry := backoff.OnRetry
	backoff.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Debug("connect attempt %d to %s failed, retrying in %s: %v", attempt, addr, wait, err)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}

	var conn net.Conn
	err := backoff.Do(ctx, func(int) error {
		c, err := dialer.Dial(ctx, "tcp", addr)
		if err != nil {
			nerr := serrors.Wrap("dial", addr, err)
			if !nerr.Retryable {
				return retry.Permanent(nerr)
			}
			return nerr
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, serrors.Resource("client", "connect", err)
	}

	c := &RemoteClient{
		rt:      rt,
		timeout: dc.Timeout,
		logger:  logger,
		conn:    conn,
		codec:   newCodec(conn),
		port:    opts.Port,
	}
	resp, err := c.roundTrip(ctx, &Request{Op: OpHello, Cores: opts.Cores, Version: opts.Version})
	if err != nil {
		conn.Close()
		return nil, serrors.Resource("client", "connect", err)
	}
	c.cores = resp.Cores
	c.version = resp.Version
	logger.Verbose("connected to engine %s on port %d (%d cores)", c.version, c.port, c.cores)
	return c, nil
}

func (c *RemoteClient) String() string {
	return fmt.Sprintf("Client(port=%d)", c.Port())
}

// Port is the connected server port, or 0 after Disconnect.
func (c *RemoteClient) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

func (c *RemoteClient) Cores() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cores
}

func (c *RemoteClient) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Disconnect tells the server goodbye and closes the connection.  The
// client is unusable afterwards.
func (c *RemoteClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return serrors.ErrNotConnected
	}

	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	var resp Response
	err := c.codec.send(&Request{Op: OpDisconnect})
	if err == nil {
		err = c.codec.recv(&resp)
	}
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	c.conn = nil
	c.codec = nil
	c.port = 0
	if err != nil {
		return serrors.Resource("client", "disconnect", err)
	}
	return nil
}

func (c *RemoteClient) Create(ctx context.Context, name string) (*Model, error) {
	resp, err := c.roundTrip(ctx, &Request{Op: OpCreate, Name: name})
	if err != nil {
		return nil, err
	}
	return resp.Model, nil
}

func (c *RemoteClient) Load(ctx context.Context, path string) (*Model, error) {
	resp, err := c.roundTrip(ctx, &Request{Op: OpLoad, Path: path})
	if err != nil {
		return nil, err
	}
	return resp.Model, nil
}

func (c *RemoteClient) Save(ctx context.Context, m *Model, path string) error {
	if m == nil {
		return fmt.Errorf("save: nil model")
	}
	_, err := c.roundTrip(ctx, &Request{Op: OpSave, Tag: m.Tag, Path: path})
	return err
}

func (c *RemoteClient) Remove(ctx context.Context, m *Model) error {
	if m == nil {
		return fmt.Errorf("remove: nil model")
	}
	_, err := c.roundTrip(ctx, &Request{Op: OpRemove, Tag: m.Tag})
	return err
}

func (c *RemoteClient) Names(ctx context.Context) ([]string, error) {
	resp, err := c.roundTrip(ctx, &Request{Op: OpNames})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// roundTrip sends one request and waits for its response.  Cancelling
// ctx unblocks the exchange by expiring the connection deadline.
func (c *RemoteClient) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, serrors.ErrNotConnected
	}

	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	} else {
		c.conn.SetDeadline(time.Time{})
	}
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.codec.send(req); err != nil {
		return nil, c.ioError(ctx, req.Op, err)
	}
	var resp Response
	if err := c.codec.recv(&resp); err != nil {
		return nil, c.ioError(ctx, req.Op, err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RemoteClient) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	var ne net.Error
	if serrors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w", op, serrors.ErrTimeout)
	}
	return serrors.Wrap(op, c.conn.RemoteAddr().String(), err)
}
