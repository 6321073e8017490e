// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"lcxterm/config"
	"lcxterm/internal/core"
	"lcxterm/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X lcxterm/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs lcxterm.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("lcxterm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── session target ───────────────────────────────────────────
	fs.StringVar(&cfg.Server, "server", cfg.Server, "Dashboard host[:port] (overrides the launch URL)")
	fs.BoolVar(&cfg.Secure, "secure", cfg.Secure, "Use wss:// and https://")
	fs.StringVar(&cfg.SessionID, "id", cfg.SessionID, "Proxy/session id (overrides ?id=)")
	fs.StringVar(&cfg.LocalIP, "localip", "", "Local address shown in the title")
	fs.StringVar(&cfg.LocalPort, "localport", "", "Local port shown in the title")
	fs.StringVar(&cfg.RemoteIP, "remoteip", "", "Remote address shown in the title")
	fs.StringVar(&cfg.RemotePort, "remoteport", "", "Remote port shown in the title")
	fs.StringVar(&cfg.TermType, "termtype", "", "Terminal type shown in the title")

	// ── surface ──────────────────────────────────────────────────
	fs.StringVar(&cfg.Rows, "rows", "", "Initial terminal rows (min 5)")
	fs.StringVar(&cfg.Cols, "cols", "", "Initial terminal columns (min 5)")
	fs.StringVar(&cfg.Escape, "escape", cfg.Escape, "Escape character to quit: ^X, a single character, or none (default ^])")

	handshakeSec := int(cfg.HandshakeTimeout / time.Second)
	fs.IntVar(&handshakeSec, "handshake-timeout", handshakeSec, "WebSocket connect timeout in seconds (0 = none)")

	// ── dashboard ────────────────────────────────────────────────
	fs.BoolVar(&cfg.Lookup, "lookup", false, "Fill title fields from the dashboard's proxy list")
	fs.BoolVar(&cfg.StartProxy, "start", false, "Ask the dashboard to start the proxy before connecting")
	fs.BoolVar(&cfg.StopProxy, "stop", false, "Ask the dashboard to stop the proxy when the session ends")

	// ── SSH gateway ──────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the dashboard through SSH gateway [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append log output to this file")
	fs.BoolVar(&cfg.Stats, "stats", false, "Print session statistics as JSON on exit")
	envVerbose := cfg.Verbose // CountVarP zeroes its target
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the resolved endpoint without connecting")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, stderr) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || (len(args) == 0 && cfg.Server == "") {
		printUsage(fs, stderr)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "lcxterm %s\n", version)
		return nil
	}

	cfg.HandshakeTimeout = time.Duration(handshakeSec) * time.Second
	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	// ── positional arguments ─────────────────────────────────────
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.LaunchURL = rest[0]
	default:
		return fmt.Errorf("too many arguments: expected one launch URL, got %d", len(rest))
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)
	if cfg.LogFile != "" {
		f, err := logger.OpenLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	if dr, ok := mode.(*core.DryRunMode); ok {
		dr.Stdout = stdout
	}
	return mode.Run(ctx)
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `lcxterm – terminal client for the lcx tunnel dashboard v%s

Opens the dashboard's terminal WebSocket for one proxy and runs it on
this terminal.  Type the login name and password at the remote prompts;
neither is echoed locally.  When the connection drops, press ENTER to
reconnect.

Usage:
  lcxterm [options] <launch-url>
  lcxterm [options] --server host[:port] --id N

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Environment:
  LCXTERM_SERVER, LCXTERM_ID, LCXTERM_SECURE, LCXTERM_ESCAPE,
  LCXTERM_HANDSHAKE_TIMEOUT, LCXTERM_TUNNEL, LCXTERM_SSH_KEY,
  LCXTERM_SSH_PASSWORD, LCXTERM_SSH_AGENT, LCXTERM_STRICT_HOSTKEY,
  LCXTERM_KNOWN_HOSTS, LCXTERM_LOG_FILE, LCXTERM_VERBOSE

Examples:
  lcxterm 'http://dash:8080/term.html?id=5'           Open proxy 5
  lcxterm --server dash:8080 --id 5 --start --lookup  Start proxy 5, then open it
  lcxterm --server dash:8080 --id 5 --start --stop    Run proxy 5 only for the session
  lcxterm -T admin@bastion --server 10.0.0.2 --id 5   Through an SSH gateway
  lcxterm --rows 40 --cols 120 --escape '^X' URL      Custom geometry and escape
`)
}
