package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"lcxterm/config"
	ncerr "lcxterm/internal/errors"
	"lcxterm/internal/lcxapi"
	"lcxterm/internal/metrics"
	"lcxterm/internal/session"
	"lcxterm/internal/surface"
	"lcxterm/internal/transport"
	"lcxterm/util"
)

// gateway is a dialer with a connection of its own to bring up first.
type gateway interface {
	Connect(ctx context.Context) error
}

// TermMode runs one interactive terminal session against the dashboard
// until the user quits.
type TermMode struct {
	Target           *config.Target
	Dialer           transport.Dialer
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration

	Lookup     bool // fill display params from the proxy list
	StartProxy bool // ask the dashboard to start the proxy first
	StopProxy  bool // and to stop it once the session ends

	Rows, Cols string // initial geometry, as typed by the user

	Escape    byte
	HasEscape bool

	Stats   bool
	Logger  *util.Logger
	Metrics *metrics.Collector

	// Stdin/Stdout/Stderr default to the process's own when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (m *TermMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *TermMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *TermMode) stderr() io.Writer {
	if m.Stderr != nil {
		return m.Stderr
	}
	return os.Stderr
}

// Run prepares the proxy, puts the terminal in raw mode, and runs the
// session.  It returns when the escape character is typed, input ends,
// or ctx is cancelled.  Only an SSH gateway that cannot be reached at
// startup is an error; later transport failures never end Run.
func (m *TermMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	if g, ok := m.Dialer.(gateway); ok {
		if err := g.Connect(ctx); err != nil {
			return err
		}
	}

	notifier := NewNotifier(m.stderr())
	params := m.Target.Params
	api, id := m.prepare(ctx, &params, notifier)

	if m.HasEscape {
		notifier.Info(fmt.Sprintf("escape character is %s", escapeName(m.Escape)))
	}

	tty := surface.NewTTY(m.stdin(), m.stdout(), m.Logger)
	if err := tty.Open(); err != nil {
		m.Logger.Error("%v; input stays line-buffered and a terminal will echo typed passwords", err)
	}
	defer tty.Restore() //nolint:errcheck

	sess := session.New(session.Config{
		Params: params,
		URL:    transport.TermConnectURL(m.Target.Host, m.Target.Secure, params.ID()),
		Opener: &transport.WebSocketOpener{
			Dialer:           m.Dialer,
			HandshakeTimeout: m.HandshakeTimeout,
			Logger:           m.Logger,
		},
		Surface:  tty,
		LineMode: !tty.Raw(),
		Logger:   m.Logger,
		Metrics:  m.Metrics,
	})
	if m.Rows != "" || m.Cols != "" {
		sess.Post(session.ResizeEvent{
			Rows: orDefault(m.Rows, surface.DefaultRows),
			Cols: orDefault(m.Cols, surface.DefaultCols),
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		err := tty.ReadKeys(ctx, m.Escape, m.HasEscape, func(p []byte) {
			sess.Post(session.InputEvent{Data: p})
		})
		switch {
		case ncerr.Is(err, ncerr.ErrEscape):
			m.Logger.Verbose("escape character received, closing session")
		case ncerr.Is(err, io.EOF):
			m.Logger.Verbose("input closed, closing session")
		case err != nil && ctx.Err() == nil:
			m.Logger.Error("reading input: %v", err)
		}
	}()

	err := sess.Run(ctx)
	tty.Restore() //nolint:errcheck

	if m.StopProxy && api != nil {
		m.stop(api, id, notifier)
	}
	if m.Stats {
		fmt.Fprintln(m.stderr(), m.Metrics.JSON())
	}
	return err
}

// prepare issues the optional REST calls.  Failures are reported and
// the session goes ahead regardless.  The returned client is nil when
// no dashboard request is wanted or the id is not a proxy number.
func (m *TermMode) prepare(ctx context.Context, params *config.ConnectionParams, n *Notifier) (*lcxapi.Client, int) {
	if !m.Lookup && !m.StartProxy && !m.StopProxy {
		return nil, 0
	}
	id, err := strconv.Atoi(params.ID())
	if err != nil {
		n.Error(fmt.Errorf("proxy id %q is not an integer, skipping dashboard requests", params.ID()))
		return nil, 0
	}
	client := lcxapi.NewClient(m.Target.BaseURL(), m.Dialer, m.RequestTimeout, m.Logger)

	if m.StartProxy {
		if _, err := client.Start(ctx, id); err != nil {
			m.Metrics.RecordError(err.Error())
			n.Error(err)
		} else {
			m.Logger.Info("proxy %d started", id)
		}
	}

	if m.Lookup {
		p, err := client.Find(ctx, id)
		switch {
		case err != nil:
			m.Metrics.RecordError(err.Error())
			n.Error(err)
		case p == nil:
			m.Logger.Warn("proxy %d not found on %s", id, m.Target.BaseURL())
		default:
			m.Logger.Verbose("proxy %d: %s (%s)", p.Id, p.Desc, p.Status)
			fillFromProxy(params, p)
		}
	}
	return client, id
}

// stop runs after the session, so it does not share the session's
// context; the client's own timeout bounds it.
func (m *TermMode) stop(client *lcxapi.Client, id int, n *Notifier) {
	if _, err := client.Stop(context.Background(), id); err != nil {
		m.Metrics.RecordError(err.Error())
		n.Error(err)
		return
	}
	m.Logger.Info("proxy %d stopped", id)
}

// fillFromProxy copies the proxy's addresses into display params the
// launch URL and flags left empty.
func fillFromProxy(params *config.ConnectionParams, p *lcxapi.Proxy) {
	fill(&params.LocalAddress, p.LocalIp)
	fill(&params.LocalPort, strconv.Itoa(p.LocalPort))
	fill(&params.RemoteAddress, p.RemoteIp)
	fill(&params.RemotePort, strconv.Itoa(p.RemotePort))
}

func fill(v *config.Value, s string) {
	if v.IsNull() {
		*v = config.ParseValue(s)
	}
}

func orDefault(s string, def int) string {
	if s == "" {
		return strconv.Itoa(def)
	}
	return s
}

func escapeName(b byte) string {
	switch {
	case b == 0x7f:
		return "^?"
	case b < 0x20:
		return "^" + string(rune(b+'@'))
	}
	return string(rune(b))
}
