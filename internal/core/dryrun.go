package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"lcxterm/config"
	"lcxterm/internal/transport"
)

// DryRunMode prints what a real run would connect to.
type DryRunMode struct {
	Target    *config.Target
	Tunnel    string // user@host:port of the SSH gateway, if any
	Escape    string
	HasEscape bool

	Stdout io.Writer // os.Stdout when nil
}

func (m *DryRunMode) Run(_ context.Context) error {
	w := m.Stdout
	if w == nil {
		w = os.Stdout
	}
	p := m.Target.Params
	fmt.Fprintf(w, "transport: %s\n", transport.TermConnectURL(m.Target.Host, m.Target.Secure, p.ID()))
	fmt.Fprintf(w, "dashboard: %s\n", m.Target.BaseURL())
	fmt.Fprintf(w, "title:     %s\n", p.Title())
	if m.Tunnel != "" {
		fmt.Fprintf(w, "gateway:   ssh %s\n", m.Tunnel)
	}
	esc := "none"
	if m.HasEscape {
		esc = m.Escape
		if esc == "" {
			esc = config.DefaultEscape
		}
	}
	fmt.Fprintf(w, "escape:    %s\n", esc)
	return nil
}
