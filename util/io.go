package util

import (
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// IsHarmless returns true for errors that are expected when a transport
// shuts down: EOF, a closed connection, or a normal WebSocket close
// handshake.  Callers log these at a lower level than real failures.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
