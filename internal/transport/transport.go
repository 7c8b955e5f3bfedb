// Package transport opens the byte streams that engine clients speak
// their protocol over.  It knows nothing about the protocol itself.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections to an engine server.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}
