// Package tunnel reaches the dashboard through an SSH gateway when it
// is not directly routable.  Connections are forwarded with
// direct-tcpip channels, so the gateway needs no special setup beyond
// allowing TCP forwarding.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is an established path to a gateway through which TCP
// connections can be opened.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel.
	Close() error

	// IsAlive reports whether the gateway connection is still up.
	IsAlive() bool
}
