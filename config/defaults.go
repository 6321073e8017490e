package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultHTTPPort is assumed when the dashboard address has no port.
	DefaultHTTPPort = 80

	// DefaultHTTPSPort is assumed for a secure dashboard without a port.
	DefaultHTTPSPort = 443

	// DefaultSSHPort is the standard SSH port for the gateway.
	DefaultSSHPort = 22

	// DefaultEscape is the local escape that ends the session (Ctrl-]).
	DefaultEscape = "^]"

	// DefaultConnTimeout bounds the SSH gateway handshake.  The dashboard
	// WebSocket itself has no timeout unless --handshake-timeout is set.
	DefaultConnTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds each dashboard REST call.
	DefaultRequestTimeout = 10 * time.Second
)
