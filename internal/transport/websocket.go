package transport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	ncerr "lcxterm/internal/errors"
	"lcxterm/util"
)

const (
	closeWriteWait = time.Second

	// DefaultWriteTimeout bounds one frame write to a stalled peer.
	DefaultWriteTimeout = 10 * time.Second
)

// WebSocketOpener opens terminal channels as WebSocket connections.
type WebSocketOpener struct {
	// Dialer carries the underlying TCP stream.  Nil dials directly.
	Dialer Dialer

	// HandshakeTimeout bounds the opening handshake.  Zero waits for as
	// long as the context allows.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each Send.  Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration

	Logger *util.Logger
}

// Open starts dialing target in the background and returns the channel
// immediately.  Whatever happens, sink sees exactly one Closed.
func (o *WebSocketOpener) Open(ctx context.Context, target string, sink Sink) Channel {
	ctx, cancel := context.WithCancel(ctx)
	ch := &wsChannel{
		target:       target,
		sink:         sink,
		cancel:       cancel,
		writeTimeout: o.WriteTimeout,
		logger:       o.Logger,
	}
	if ch.writeTimeout <= 0 {
		ch.writeTimeout = DefaultWriteTimeout
	}
	if ch.logger == nil {
		ch.logger = util.NewLogger(0)
	}
	go ch.run(ctx, o.wsDialer())
	return ch
}

func (o *WebSocketOpener) wsDialer() *websocket.Dialer {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: o.HandshakeTimeout,
	}
	if o.Dialer != nil {
		nd := o.Dialer
		d.Proxy = nil
		d.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nd.Dial(ctx, network, addr)
		}
	}
	return d
}

type wsChannel struct {
	target       string
	sink         Sink
	cancel       context.CancelFunc
	writeTimeout time.Duration
	logger       *util.Logger

	// closed is set without mu so the read side never waits behind a
	// blocked write.
	closed atomic.Bool

	mu   sync.Mutex // guards conn; serialises writes
	conn *websocket.Conn
}

func (c *wsChannel) Target() string { return c.target }

func (c *wsChannel) run(ctx context.Context, d *websocket.Dialer) {
	c.logger.Debug("ws: dialing %s", c.target)
	conn, resp, err := d.DialContext(ctx, c.target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.finish(ncerr.Wrap("dial", c.target, err))
		return
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		conn.Close()
		c.finish(ncerr.ErrTransportClosed)
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.sink.Opened(c)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if util.IsHarmless(err) || c.closed.Load() {
				err = nil
			} else {
				err = ncerr.Wrap("read", c.target, err)
			}
			c.shutdown(conn)
			c.finish(err)
			return
		}
		c.sink.Received(c, Message{Binary: mt == websocket.BinaryMessage, Data: data})
	}
}

func (c *wsChannel) finish(err error) {
	if err != nil {
		c.logger.Debug("ws: %s closed: %v", c.target, err)
	}
	c.cancel()
	c.sink.Closed(c, err)
}

// Send writes p as one text frame.
func (c *wsChannel) Send(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ncerr.ErrTransportClosed
	}
	if c.conn == nil {
		return ncerr.ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)) //nolint:errcheck
	if err := c.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return ncerr.Wrap("write", c.target, err)
	}
	return nil
}

// Close sends a normal-closure frame when the connection is up, or
// abandons the dial when it is not.
func (c *wsChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	conn := c.conn
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait)) //nolint:errcheck
	}
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// shutdown marks the channel closed after the read side has ended.
// Closing conn also fails any write still blocked under mu.
func (c *wsChannel) shutdown(conn *websocket.Conn) {
	c.closed.Store(true)
	conn.Close()
}
