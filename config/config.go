// Package config defines the runtime configuration for lcxterm and
// resolves it into the dashboard endpoint and connection parameters of
// a terminal session.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "lcxterm/internal/errors"
	"lcxterm/util"
)

// Config holds every tuneable for a single lcxterm run.
type Config struct {
	// ── Session target ───────────────────────────────────────────────
	LaunchURL string // positional: the dashboard's terminal page URL
	Server    string // --server host[:port], overrides the launch URL host
	Secure    bool   // wss:// and https:// instead of ws:// and http://
	SessionID string // --id, overrides the launch URL "id"

	// Display overrides for the launch parameters.
	LocalIP    string
	LocalPort  string
	RemoteIP   string
	RemotePort string
	TermType   string

	// ── Surface ──────────────────────────────────────────────────────
	Rows   string // kept as text: invalid input clamps instead of failing
	Cols   string
	Escape string // "^]", a single character, or "none"

	// ── Transport ────────────────────────────────────────────────────
	HandshakeTimeout time.Duration // 0 = wait forever

	// ── Dashboard REST ───────────────────────────────────────────────
	Lookup     bool // fill display params from /lcx/proxylist
	StartProxy bool // GET /lcx/proxy?op=start before connecting
	StopProxy  bool // GET /lcx/proxy?op=stop after the session ends

	// ── SSH gateway ──────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	LogFile string
	Stats   bool
	Verbose int
	DryRun  bool
}

// Target is the resolved endpoint of one terminal session.
type Target struct {
	Host   string // dashboard host:port
	Secure bool
	Params ConnectionParams
}

// BaseURL returns the dashboard's HTTP origin, e.g. "http://dash:8080".
func (t *Target) BaseURL() string {
	scheme := "http"
	if t.Secure {
		scheme = "https"
	}
	return scheme + "://" + t.Host
}

// Resolve merges the launch URL with the flag overrides.  Overrides are
// typed with the same rules as launch parameters, so "--id 5" and
// "?id=5" produce the same session id.
func (c *Config) Resolve() (*Target, error) {
	t := &Target{Secure: c.Secure}
	params := Params{}

	if c.LaunchURL != "" {
		u, err := parseLaunchURL(c.LaunchURL)
		if err != nil {
			return nil, &ncerr.ConfigError{
				Field:   "launch-url",
				Value:   c.LaunchURL,
				Message: err.Error(),
				Hint:    "pass the terminal page URL, e.g. http://dash:8080/term.html?id=5",
			}
		}
		switch u.Scheme {
		case "https", "wss":
			t.Secure = true
		}
		t.Host = u.Host
		params = ParseLaunchParams(u.RawQuery)
	}

	if c.Server != "" {
		t.Host = c.Server
	}
	if t.Host != "" {
		defPort := DefaultHTTPPort
		if t.Secure {
			defPort = DefaultHTTPSPort
		}
		host, port, err := util.SplitHostPort(t.Host, defPort)
		if err != nil {
			return nil, &ncerr.ConfigError{Field: "server", Value: t.Host, Message: err.Error()}
		}
		t.Host = util.FormatAddr(host, port)
	}

	for key, v := range map[string]string{
		ParamID:         c.SessionID,
		ParamLocalIP:    c.LocalIP,
		ParamLocalPort:  c.LocalPort,
		ParamRemoteIP:   c.RemoteIP,
		ParamRemotePort: c.RemotePort,
		ParamTermType:   c.TermType,
	} {
		if v != "" {
			params[key] = ParseValue(v)
		}
	}
	t.Params = ConnectionParamsFrom(params)

	if t.Host == "" {
		return nil, &ncerr.ConfigError{
			Field:   "server",
			Message: "dashboard address is required",
			Hint:    "pass a launch URL or --server host[:port]",
		}
	}
	if t.Params.SessionID.IsNull() {
		return nil, &ncerr.ConfigError{
			Field:   "id",
			Message: "session id is required",
			Hint:    "add ?id=N to the launch URL or pass --id N",
		}
	}
	return t, nil
}

func parseLaunchURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// ── Escape character ─────────────────────────────────────────────────

// ParseEscape decodes the --escape value.  "^X" is the control
// character for X, a single byte stands for itself, "none" disables the
// escape and "" means [DefaultEscape].  ok is false when disabled.
func ParseEscape(spec string) (b byte, ok bool, err error) {
	switch {
	case spec == "":
		return ParseEscape(DefaultEscape)
	case strings.EqualFold(spec, "none"):
		return 0, false, nil
	case len(spec) == 2 && spec[0] == '^':
		c := spec[1]
		if c == '?' {
			return 0x7f, true, nil
		}
		if c < '@' || c > '_' {
			if c >= 'a' && c <= 'z' {
				return c - 'a' + 1, true, nil
			}
			return 0, false, fmt.Errorf("invalid control character %q", spec)
		}
		return c - '@', true, nil
	case len(spec) == 1:
		return spec[0], true, nil
	}
	return 0, false, fmt.Errorf("invalid escape %q – expected ^X, a single character, or none", spec)
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user, host, port = m[1], m[2], DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.  It
// does not resolve the target; see [Config.Resolve].
func (c *Config) Validate() error {
	if _, _, err := ParseEscape(c.Escape); err != nil {
		return &ncerr.ConfigError{Field: "escape", Value: c.Escape, Message: err.Error()}
	}
	if c.HandshakeTimeout < 0 {
		return &ncerr.ConfigError{
			Field:   "handshake-timeout",
			Value:   c.HandshakeTimeout,
			Message: "must not be negative",
			Hint:    "use 0 to wait for the dashboard indefinitely",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	return nil
}
