package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"lcxterm/config"
	"lcxterm/internal/metrics"
	"lcxterm/internal/surface"
	"lcxterm/internal/transport"
)

// ── fakes ────────────────────────────────────────────────────────────

type fakeChannel struct {
	target string
	sink   transport.Sink

	mu      sync.Mutex
	sent    []string
	closed  bool
	sendErr error
}

func (c *fakeChannel) Send(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, string(p))
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) Target() string { return c.target }

func (c *fakeChannel) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeOpener hands out fakeChannels and records every Open.  When
// autoOpen is set each channel reports Opened from its own goroutine,
// like a real transport.
type fakeOpener struct {
	autoOpen bool

	mu       sync.Mutex
	channels []*fakeChannel
}

func (o *fakeOpener) Open(_ context.Context, target string, sink transport.Sink) transport.Channel {
	ch := &fakeChannel{target: target, sink: sink}
	o.mu.Lock()
	o.channels = append(o.channels, ch)
	o.mu.Unlock()
	if o.autoOpen {
		go sink.Opened(ch)
	}
	return ch
}

func (o *fakeOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.channels)
}

func (o *fakeOpener) last() *fakeChannel {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.channels) == 0 {
		return nil
	}
	return o.channels[len(o.channels)-1]
}

type harness struct {
	s       *Session
	opener  *fakeOpener
	surface *surface.Memory
	metrics *metrics.Collector
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	params := config.ConnectionParamsFrom(config.ParseLaunchParams(
		"id=5&localip=10.0.0.1&localport=2222&remoteip=192.168.10.5&remoteport=22&termtype=ssh"))
	h := &harness{
		opener:  &fakeOpener{},
		surface: &surface.Memory{},
		metrics: metrics.New(),
	}
	h.s = New(Config{
		Params:  params,
		URL:     transport.TermConnectURL("dash:8080", false, params.ID()),
		Opener:  h.opener,
		Surface: h.surface,
		Metrics: h.metrics,
	})
	return h
}

// connected drives the session to SendingUsername on a fresh transport.
func (h *harness) connected(t *testing.T) *fakeChannel {
	t.Helper()
	h.s.Connect()
	ch := h.opener.last()
	if ch == nil {
		t.Fatal("Connect did not open a transport")
	}
	h.s.HandleOpen(ch)
	if st := h.s.State(); st != SendingUsername {
		t.Fatalf("state after open = %v, want SendingUsername", st)
	}
	return ch
}

// ── handler-level behaviour ──────────────────────────────────────────

func TestSession_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)

	h.s.HandleInput([]byte("root\r"))
	if got := h.surface.String(); got != "\n" {
		t.Errorf("surface after username = %q, want one newline", got)
	}
	if got := ch.Sent(); len(got) != 1 || got[0] != "root\r" {
		t.Errorf("sent = %q, want [root\\r]", got)
	}
	if st := h.s.State(); st != SendingPassword {
		t.Fatalf("state = %v, want SendingPassword", st)
	}

	h.s.HandleInput([]byte("pw\r"))
	if got := ch.Sent(); len(got) != 2 || got[1] != "pw\r" {
		t.Errorf("sent = %q", got)
	}
	if st := h.s.State(); st != ShellIO {
		t.Fatalf("state = %v, want ShellIO", st)
	}
	if got := h.surface.String(); got != "\n\r\n" {
		t.Errorf("surface after password = %q", got)
	}

	h.s.HandleInput([]byte("ls\n"))
	if got := ch.Sent(); len(got) != 3 || got[2] != "ls\n" {
		t.Errorf("sent = %q", got)
	}
	if got := h.surface.String(); got != "\n\r\n" {
		t.Errorf("shell input echoed locally: %q", got)
	}
}

func TestSession_LoginKeystrokesNotEchoed(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)

	for _, k := range []string{"r", "o", "o", "t"} {
		h.s.HandleInput([]byte(k))
	}
	if h.surface.String() != "" {
		t.Errorf("username echoed: %q", h.surface.String())
	}
	h.s.HandleInput([]byte("\r"))
	h.surface.Reset()

	for _, k := range []string{"s", "3", "c", "r", "3", "t"} {
		h.s.HandleInput([]byte(k))
	}
	if h.surface.String() != "" {
		t.Errorf("password echoed: %q", h.surface.String())
	}
	if got := strings.Join(ch.Sent(), ""); got != "root\rs3cr3t" {
		t.Errorf("transport got %q, want each keystroke exactly once", got)
	}
}

func TestSession_EnterWritesExactlyOneLineBreak(t *testing.T) {
	h := newHarness(t)
	h.connected(t)

	h.s.HandleInput([]byte("\n"))
	if got := h.surface.String(); got != "\n" {
		t.Errorf("username Enter wrote %q", got)
	}
	h.surface.Reset()
	h.s.HandleInput([]byte("\r"))
	if got := h.surface.String(); got != "\r\n" {
		t.Errorf("password Enter wrote %q", got)
	}
}

func TestSession_PasteAcrossPhases(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)

	h.s.HandleInput([]byte("root\rpw\rls\rpwd\r"))

	want := []string{"root\r", "pw\r", "ls\rpwd\r"}
	if got := ch.Sent(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("sent = %q, want %q", got, want)
	}
	if got := h.surface.String(); got != "\n\r\n" {
		t.Errorf("surface = %q", got)
	}
	if st := h.s.State(); st != ShellIO {
		t.Errorf("state = %v", st)
	}
}

func TestSession_CloseResetsFromEveryState(t *testing.T) {
	drive := map[State][]string{
		AwaitingConnection: nil,
		SendingUsername:    {"ro"},
		SendingPassword:    {"root\r"},
		ShellIO:            {"root\r", "pw\r", "ls\r"},
	}
	for want, inputs := range drive {
		t.Run(want.String(), func(t *testing.T) {
			h := newHarness(t)
			var ch *fakeChannel
			if want == AwaitingConnection {
				h.s.Connect() // still dialing
				ch = h.opener.last()
			} else {
				ch = h.connected(t)
			}
			for _, in := range inputs {
				h.s.HandleInput([]byte(in))
			}
			if h.s.State() != want {
				t.Fatalf("setup reached %v, want %v", h.s.State(), want)
			}

			h.s.HandleClose(ch, nil)

			if st := h.s.State(); st != AwaitingConnection {
				t.Errorf("state after close = %v", st)
			}
			if n := strings.Count(h.surface.String(), ReconnectPrompt); n != 1 {
				t.Errorf("reconnect prompt written %d times", n)
			}
		})
	}
}

func TestSession_ErrorCloseSameAsClean(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)
	h.s.HandleInput([]byte("root\r"))
	h.surface.Reset()

	h.s.HandleClose(ch, errors.New("connection reset by peer"))

	if h.surface.String() != ReconnectPrompt {
		t.Errorf("surface = %q", h.surface.String())
	}
	if h.s.State() != AwaitingConnection {
		t.Errorf("state = %v", h.s.State())
	}
	if h.metrics.ErrorCount() != 1 {
		t.Errorf("errors = %d, want 1", h.metrics.ErrorCount())
	}
}

func TestSession_EnterReconnectsOnce(t *testing.T) {
	h := newHarness(t)
	first := h.connected(t)
	h.s.HandleClose(first, nil)

	h.s.HandleInput([]byte("\r"))
	if n := h.opener.count(); n != 2 {
		t.Fatalf("opened %d transports, want 2", n)
	}
	second := h.opener.last()
	if !strings.HasSuffix(second.Target(), "?op=termconnect&id=5") {
		t.Errorf("target = %q, want original id", second.Target())
	}

	// Still dialing: more Enters must not open more transports.
	h.s.HandleInput([]byte("\r"))
	h.s.HandleInput([]byte("\r\r\r"))
	if n := h.opener.count(); n != 2 {
		t.Errorf("opened %d transports while dialing, want 2", n)
	}
	if st := h.s.State(); st != AwaitingConnection {
		t.Errorf("state = %v before open", st)
	}

	h.s.HandleOpen(second)
	if st := h.s.State(); st != SendingUsername {
		t.Errorf("state = %v after reopen", st)
	}
	if h.metrics.ReconnectRequests() != 2 {
		t.Errorf("reconnect requests = %d", h.metrics.ReconnectRequests())
	}
}

func TestSession_LineModeLFReconnects(t *testing.T) {
	for _, line := range []bool{false, true} {
		h := newHarness(t)
		h.s.line = line
		h.s.HandleClose(h.connected(t), nil)

		h.s.HandleInput([]byte("\n"))

		want := 1
		if line {
			want = 2
		}
		if n := h.opener.count(); n != want {
			t.Errorf("line mode %v: LF opened %d transports total, want %d", line, n, want)
		}
	}
}

func TestSession_CRLFIsOneLineEnd(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)

	h.s.HandleInput([]byte("root\r\n"))

	if got := ch.Sent(); len(got) != 1 || got[0] != "root\r\n" {
		t.Errorf("sent = %q, want [root\\r\\n]", got)
	}
	if st := h.s.State(); st != SendingPassword {
		t.Errorf("state = %v, want SendingPassword", st)
	}
	if got := h.surface.String(); got != "\n" {
		t.Errorf("surface = %q, want one newline", got)
	}
}

func TestSession_DialFailureShowsPrompt(t *testing.T) {
	h := newHarness(t)
	h.s.Connect()
	ch := h.opener.last()

	h.s.HandleClose(ch, errors.New("dial tcp: connection refused"))

	if h.surface.String() != ReconnectPrompt {
		t.Errorf("surface = %q", h.surface.String())
	}
	h.s.HandleInput([]byte("\r"))
	if n := h.opener.count(); n != 2 {
		t.Errorf("Enter after failed dial opened %d transports total, want 2", n)
	}
}

func TestSession_InputDroppedWithoutTransport(t *testing.T) {
	h := newHarness(t)

	h.s.HandleInput([]byte("hello"))
	if n := h.opener.count(); n != 0 {
		t.Errorf("opened %d transports", n)
	}
	if h.surface.String() != "" {
		t.Errorf("surface = %q", h.surface.String())
	}
	if h.metrics.KeystrokesDropped() != 1 {
		t.Errorf("dropped = %d, want 1", h.metrics.KeystrokesDropped())
	}
}

func TestSession_InputDroppedWhileDialing(t *testing.T) {
	h := newHarness(t)
	h.s.Connect()
	ch := h.opener.last()

	h.s.HandleInput([]byte("abc"))
	if len(ch.Sent()) != 0 {
		t.Errorf("sent before open: %q", ch.Sent())
	}
}

func TestSession_SendFailureDropsKeystroke(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)
	ch.sendErr = errors.New("broken pipe")

	h.s.HandleInput([]byte("r"))
	if h.metrics.KeystrokesDropped() != 1 || h.metrics.KeystrokesSent() != 0 {
		t.Errorf("metrics = %+v", h.metrics.Snapshot())
	}
	if h.s.State() != SendingUsername {
		t.Errorf("state = %v", h.s.State())
	}
}

func TestSession_StaleEventsIgnored(t *testing.T) {
	h := newHarness(t)
	old := h.connected(t)
	h.s.HandleClose(old, nil)
	h.s.HandleInput([]byte("\r"))
	cur := h.opener.last()
	h.s.HandleOpen(cur)
	h.surface.Reset()

	h.s.HandleMessage(old, transport.Message{Data: []byte("ghost")})
	h.s.HandleClose(old, nil)

	if h.surface.String() != "" {
		t.Errorf("stale events reached the surface: %q", h.surface.String())
	}
	if h.s.State() != SendingUsername {
		t.Errorf("state = %v", h.s.State())
	}

	// An Opened from a transport the session no longer owns is closed.
	stray := &fakeChannel{target: "ws://elsewhere"}
	h.s.HandleOpen(stray)
	if !stray.Closed() {
		t.Error("stray transport should be closed")
	}
}

func TestSession_MessagesRouted(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)

	h.s.HandleMessage(ch, transport.Message{Data: []byte("login: ")})
	h.s.HandleMessage(ch, transport.Message{Data: []byte(`{"Type":"c","Data":"x"}`)})
	h.s.HandleMessage(ch, transport.Message{Data: []byte(`{"Type":"d","Data":"y"}`)})

	if got := h.surface.String(); got != "login: " {
		t.Errorf("surface = %q", got)
	}
	s := h.metrics.Snapshot()
	if s.RawMessages != 1 || s.ControlPackets != 1 || s.DataPackets != 1 {
		t.Errorf("metrics = %+v", s)
	}
	if s.BytesIn == 0 {
		t.Error("bytes in not counted")
	}
}

func TestSession_ResizeIsLocalOnly(t *testing.T) {
	h := newHarness(t)
	ch := h.connected(t)

	h.s.HandleResize("2", "abc")

	sizes := h.surface.Sizes()
	if len(sizes) != 1 || sizes[0] != (surface.Size{Rows: 5, Cols: 5}) {
		t.Errorf("sizes = %v, want [5x5]", sizes)
	}
	if len(ch.Sent()) != 0 {
		t.Errorf("resize sent to transport: %q", ch.Sent())
	}
}

// ── event loop ───────────────────────────────────────────────────────

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_Run(t *testing.T) {
	h := newHarness(t)
	h.opener.autoOpen = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.s.Run(ctx) }()

	waitFor(t, "first transport", func() bool { return h.opener.count() == 1 })
	waitFor(t, "open", func() bool { return h.s.State() == SendingUsername })

	if titles := h.surface.Titles(); len(titles) != 1 ||
		titles[0] != "LocalAddr: 10.0.0.1:2222, RemoteAddr: 192.168.10.5:22, TermType: ssh" {
		t.Errorf("titles = %q", titles)
	}

	ch := h.opener.last()
	h.s.Post(InputEvent{Data: []byte("root\r")})
	h.s.Post(ResizeEvent{Rows: "40", Cols: "120"})
	h.s.Post(MessageEvent{Channel: ch, Message: transport.Message{Data: []byte("Password: ")}})
	waitFor(t, "password prompt", func() bool { return strings.Contains(h.surface.String(), "Password: ") })

	if h.s.State() != SendingPassword {
		t.Errorf("state = %v", h.s.State())
	}
	if got := ch.Sent(); len(got) != 1 || got[0] != "root\r" {
		t.Errorf("sent = %q", got)
	}

	// Transport loss, then Enter: a second transport opens.
	ch.sink.Closed(ch, nil)
	waitFor(t, "reset", func() bool { return strings.Contains(h.surface.String(), ReconnectPrompt) })
	h.s.Post(InputEvent{Data: []byte("\r")})
	waitFor(t, "second transport", func() bool { return h.opener.count() == 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !h.opener.last().Closed() {
		t.Error("Run should close the current transport on exit")
	}

	// Posting after Run has returned must not block.
	posted := make(chan struct{})
	go func() {
		for i := 0; i < defaultQueueSize*2; i++ {
			h.s.Post(InputEvent{Data: []byte("x")})
		}
		close(posted)
	}()
	select {
	case <-posted:
	case <-time.After(5 * time.Second):
		t.Fatal("Post blocked after Run returned")
	}
}

func TestSession_RunHandlesQueuedInputOnCancel(t *testing.T) {
	h := newHarness(t)
	h.opener.autoOpen = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.s.Run(ctx) }()
	waitFor(t, "open", func() bool { return h.s.State() == SendingUsername })

	const n = 50
	for i := 0; i < n; i++ {
		h.s.Post(InputEvent{Data: []byte("x")})
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := len(h.opener.last().Sent()); got != n {
		t.Errorf("forwarded %d of %d keystrokes queued before cancel", got, n)
	}
}
