// Package session is the terminal session bridge: it turns one
// message transport into an interactive terminal, tracks the login
// phase so credentials are never echoed locally, and re-dials the
// transport when the user asks after it is lost.
//
// All session state is owned by the goroutine running [Session.Run].
// Input readers and transports never touch it directly; they [Session.Post]
// events, which Run handles one at a time in arrival order.
package session

import (
	"context"
	"sync/atomic"

	"lcxterm/config"
	"lcxterm/internal/demux"
	"lcxterm/internal/metrics"
	"lcxterm/internal/surface"
	"lcxterm/internal/transport"
	"lcxterm/util"
)

// ReconnectPrompt is written to the surface every time the transport
// goes away.
const ReconnectPrompt = "\r\nConnection lost, press ENTER to reconnect\r\n"

const defaultQueueSize = 256

// Config wires a Session to its collaborators.
type Config struct {
	Params  config.ConnectionParams
	URL     string // transport target, built once from Params
	Opener  transport.Opener
	Surface surface.Surface

	// Demux routes inbound messages.  Nil writes raw output to Surface
	// and logs envelopes.
	Demux *demux.Demuxer

	// LineMode is for input that arrives a line at a time from a
	// terminal that is not in raw mode.  Enter reaches the session as
	// LF there, so LF also reconnects.
	LineMode bool

	Logger    *util.Logger
	Metrics   *metrics.Collector
	QueueSize int
}

// Session is one terminal session.  Create it with New and drive it
// with Run.
type Session struct {
	params  config.ConnectionParams
	url     string
	opener  transport.Opener
	surface surface.Surface
	demux   *demux.Demuxer
	logger  *util.Logger
	metrics *metrics.Collector
	line    bool

	ctx       context.Context
	state     atomic.Int32
	transport transport.Channel
	open      bool

	events chan Event
	done   chan struct{}
}

// New returns a session in AwaitingConnection with no transport.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = util.NewLogger(0)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	dm := cfg.Demux
	if dm == nil {
		dm = &demux.Demuxer{Logger: cfg.Logger, Metrics: cfg.Metrics}
	}
	if dm.Raw == nil {
		dm.Raw = cfg.Surface
	}
	return &Session{
		params:  cfg.Params,
		url:     cfg.URL,
		opener:  cfg.Opener,
		surface: cfg.Surface,
		demux:   dm,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		line:    cfg.LineMode,
		ctx:     context.Background(),
		events:  make(chan Event, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// State returns the current login phase.  Safe from any goroutine.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug("session: %s -> %s", prev, st)
	}
}

// Params returns the launch parameters the session dials with.
func (s *Session) Params() config.ConnectionParams { return s.params }

// URL returns the transport target.
func (s *Session) URL() string { return s.url }

// Post queues ev for the loop.  It blocks while the queue is full and
// returns immediately once Run has finished.
func (s *Session) Post(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Run sets the title, opens the first transport, and handles events
// until ctx ends.  Events already queued when ctx ends are still
// handled, then the current transport is closed.  Run must be called
// at most once.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.done)

	title := s.params.Title()
	s.logger.Verbose("%s", title)
	if err := s.surface.SetTitle(title); err != nil {
		s.logger.Debug("set title: %v", err)
	}

	s.Connect()

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.shutdown()
			return nil
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

func (s *Session) dispatch(ev Event) {
	switch e := ev.(type) {
	case InputEvent:
		s.HandleInput(e.Data)
	case ResizeEvent:
		s.HandleResize(e.Rows, e.Cols)
	case OpenEvent:
		s.HandleOpen(e.Channel)
	case MessageEvent:
		s.HandleMessage(e.Channel, e.Message)
	case CloseEvent:
		s.HandleClose(e.Channel, e.Err)
	}
}

// drain handles whatever is queued without waiting for more.
func (s *Session) drain() {
	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		default:
			return
		}
	}
}

func (s *Session) shutdown() {
	if s.transport == nil {
		return
	}
	ch := s.transport
	s.transport = nil
	s.open = false
	if err := ch.Close(); err != nil {
		s.logger.Debug("closing transport: %v", err)
	}
}

// Connect opens a new transport unless one already exists.  A dial in
// flight counts, so repeated Enter while connecting opens nothing more.
func (s *Session) Connect() {
	if s.transport != nil {
		s.logger.Debug("connect ignored: transport already %s", s.transportPhase())
		return
	}
	s.metrics.ReconnectRequested()
	s.logger.Verbose("connecting to %s", s.url)
	s.transport = s.opener.Open(s.ctx, s.url, sink{s})
}

func (s *Session) transportPhase() string {
	if s.open {
		return "open"
	}
	return "dialing"
}

// HandleInput runs a chunk of keyboard input through the state machine.
func (s *Session) HandleInput(p []byte) {
	for len(p) > 0 {
		if s.State() == ShellIO {
			s.forward(p)
			return
		}
		key := nextKey(p)
		p = p[len(key):]

		st := s.State()
		tr := Step(st, key)
		if s.line && st == AwaitingConnection && key[len(key)-1] == '\n' {
			tr.Action = Connect
		}
		if tr.Echo != "" {
			s.write([]byte(tr.Echo))
		}
		switch tr.Action {
		case Connect:
			s.Connect()
		case Forward:
			s.forward(key)
		default:
			s.metrics.KeystrokeDropped()
		}
		s.setState(tr.Next)
	}
}

// forward sends key if the transport is open and drops it otherwise.
func (s *Session) forward(key []byte) {
	if s.transport == nil || !s.open {
		s.metrics.KeystrokeDropped()
		return
	}
	if err := s.transport.Send(key); err != nil {
		s.logger.Debug("send: %v", err)
		s.metrics.RecordError(err.Error())
		s.metrics.KeystrokeDropped()
		return
	}
	s.metrics.KeystrokeSent(len(key))
}

// HandleResize applies user-entered geometry to the surface.  The
// remote side is not told.
func (s *Session) HandleResize(rows, cols string) {
	size := surface.ParseSize(rows, cols)
	if err := s.surface.Resize(size); err != nil {
		s.logger.Debug("resize: %v", err)
		return
	}
	s.logger.Verbose("surface resized to %s", size)
}

// HandleOpen moves a freshly opened transport into the login phase.
func (s *Session) HandleOpen(ch transport.Channel) {
	if ch != s.transport {
		s.logger.Debug("open from stale transport %s", ch.Target())
		ch.Close() //nolint:errcheck
		return
	}
	s.open = true
	s.metrics.TransportOpened()
	s.logger.Verbose("connected to %s", ch.Target())
	s.setState(SendingUsername)
}

// HandleMessage routes one inbound message.
func (s *Session) HandleMessage(ch transport.Channel, msg transport.Message) {
	if ch != s.transport {
		return
	}
	s.metrics.BytesReceived(len(msg.Data))
	if err := s.demux.Dispatch(msg.Data); err != nil {
		s.logger.Debug("surface write: %v", err)
		s.metrics.RecordError(err.Error())
	}
}

// HandleClose forgets the transport, resets to AwaitingConnection and
// tells the user how to reconnect.  Clean closes, errors, and failed
// dials are treated alike.
func (s *Session) HandleClose(ch transport.Channel, err error) {
	if ch != s.transport {
		return
	}
	s.transport = nil
	s.open = false
	s.metrics.TransportClosed()
	if err != nil && !util.IsHarmless(err) {
		s.logger.Verbose("transport closed: %v", err)
		s.metrics.RecordError(err.Error())
	} else {
		s.logger.Verbose("transport closed")
	}
	s.setState(AwaitingConnection)
	s.write([]byte(ReconnectPrompt))
}

func (s *Session) write(p []byte) {
	if _, err := s.surface.Write(p); err != nil {
		s.logger.Debug("surface write: %v", err)
	}
}
