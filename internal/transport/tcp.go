package transport

import (
	"context"
	"net"
	"time"
)

// TCPDialer connects straight to the dashboard.
type TCPDialer struct {
	Timeout   time.Duration // 0 = no timeout
	KeepAlive time.Duration // 0 = Go default
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
