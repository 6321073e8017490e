package session

import "lcxterm/internal/transport"

// Event is anything the session loop reacts to.
type Event interface {
	isEvent()
}

// InputEvent is one chunk of keyboard input.
type InputEvent struct {
	Data []byte
}

// ResizeEvent asks for a new surface geometry.  The fields are the raw
// user-entered text.
type ResizeEvent struct {
	Rows string
	Cols string
}

// OpenEvent reports a transport that finished its handshake.
type OpenEvent struct {
	Channel transport.Channel
}

// MessageEvent carries one inbound transport message.
type MessageEvent struct {
	Channel transport.Channel
	Message transport.Message
}

// CloseEvent is the last event a transport produces.  Err is nil for a
// clean close.
type CloseEvent struct {
	Channel transport.Channel
	Err     error
}

func (InputEvent) isEvent()   {}
func (ResizeEvent) isEvent()  {}
func (OpenEvent) isEvent()    {}
func (MessageEvent) isEvent() {}
func (CloseEvent) isEvent()   {}

// sink feeds transport callbacks into the session loop.
type sink struct {
	s *Session
}

func (k sink) Opened(ch transport.Channel) {
	k.s.Post(OpenEvent{Channel: ch})
}

func (k sink) Received(ch transport.Channel, msg transport.Message) {
	k.s.Post(MessageEvent{Channel: ch, Message: msg})
}

func (k sink) Closed(ch transport.Channel, err error) {
	k.s.Post(CloseEvent{Channel: ch, Err: err})
}
