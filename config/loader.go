package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv overlays LCXTERM_* environment variables onto cfg.  Only
// non-empty variables override the existing value.  Call it BEFORE flag
// parsing so that flags take precedence.  Booleans accept "1", "true",
// "yes" (case-insensitive).
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("LCXTERM_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("LCXTERM_ID"); v != "" {
		cfg.SessionID = v
	}
	if envBool("LCXTERM_SECURE") {
		cfg.Secure = true
	}
	if v := os.Getenv("LCXTERM_ESCAPE"); v != "" {
		cfg.Escape = v
	}
	if v := envInt("LCXTERM_HANDSHAKE_TIMEOUT"); v > 0 {
		cfg.HandshakeTimeout = secondsDuration(v)
	}

	// SSH gateway
	if v := os.Getenv("LCXTERM_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("LCXTERM_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("LCXTERM_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("LCXTERM_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("LCXTERM_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("LCXTERM_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := os.Getenv("LCXTERM_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := envInt("LCXTERM_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
