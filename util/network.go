package util

import (
	"net"
	"strconv"
)

// LoopbackHost is the only interface the engine server binds to.
const LoopbackHost = "127.0.0.1"

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// LoopbackAddr returns "127.0.0.1:port".  Port 0 asks the OS to pick.
func LoopbackAddr(port int) string {
	return FormatAddr(LoopbackHost, port)
}

// PortOf extracts the port from a listener or connection address.
// It returns 0 for address types that carry no port.
func PortOf(addr net.Addr) int {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.Port
	case *net.UDPAddr:
		return a.Port
	}
	_, p, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}
