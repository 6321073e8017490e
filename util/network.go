package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SplitHostPort parses "host", "host:port", "[v6]" or "[v6]:port".  A
// missing port yields defPort.
func SplitHostPort(addr string, defPort int) (string, int, error) {
	if addr == "" {
		return "", 0, fmt.Errorf("empty address")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port present.
		host = strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
		if host == "" || strings.ContainsAny(host, "[]") {
			return "", 0, fmt.Errorf("invalid address %q", addr)
		}
		if strings.Count(host, ":") == 1 {
			return "", 0, fmt.Errorf("invalid address %q", addr)
		}
		return host, defPort, nil
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host in %q", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
