package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNotLoopback is returned when a dial target is not a loopback
// address.
var ErrNotLoopback = errors.New("address is not a loopback address")

// TCPDialer establishes plain TCP connections.  Engine servers only
// listen on the loopback interface, so it refuses any other target
// before touching the network.
type TCPDialer struct {
	Timeout time.Duration
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := checkLoopback(address); err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

func checkLoopback(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("parse address %q: %w", address, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("dial %s: %w", address, ErrNotLoopback)
	}
	return nil
}
