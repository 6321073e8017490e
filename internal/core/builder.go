package core

import (
	"lcxterm/config"
	"lcxterm/internal/metrics"
	"lcxterm/internal/transport"
	"lcxterm/tunnel"
	"lcxterm/util"
)

// Build resolves cfg and returns the mode to run.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	target, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	escape, hasEscape, err := config.ParseEscape(cfg.Escape)
	if err != nil {
		return nil, err
	}

	if cfg.DryRun {
		return &DryRunMode{
			Target:    target,
			Tunnel:    tunnelLabel(cfg),
			Escape:    cfg.Escape,
			HasEscape: hasEscape,
		}, nil
	}

	return &TermMode{
		Target:           target,
		Dialer:           buildDialer(cfg, logger),
		HandshakeTimeout: cfg.HandshakeTimeout,
		RequestTimeout:   config.DefaultRequestTimeout,
		Lookup:           cfg.Lookup,
		StartProxy:       cfg.StartProxy,
		StopProxy:        cfg.StopProxy,
		Rows:             cfg.Rows,
		Cols:             cfg.Cols,
		Escape:           escape,
		HasEscape:        hasEscape,
		Stats:            cfg.Stats,
		Logger:           logger,
		Metrics:          metrics.New(),
	}, nil
}

// buildDialer picks the stream dialer shared by the WebSocket channel
// and the REST client.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   config.DefaultConnTimeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.HandshakeTimeout}
}

func tunnelLabel(cfg *config.Config) string {
	if !cfg.TunnelEnabled {
		return ""
	}
	addr := util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort)
	if cfg.TunnelUser != "" {
		return cfg.TunnelUser + "@" + addr
	}
	return addr
}
