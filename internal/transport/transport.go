// Package transport provides the message channel a terminal session
// talks over, and the stream dialers underneath it.
//
// A [Channel] is one full-duplex, message-oriented connection to the
// dashboard's terminal endpoint.  It is treated as unreliable: it may
// close at any moment and is never reused once closed.  Lifecycle
// events are pushed to a [Sink] rather than pulled, so the session can
// fold them into its own event loop.
package transport

import (
	"context"
	"net"
)

// Message is one inbound frame.
type Message struct {
	Binary bool
	Data   []byte
}

// Channel is an open (or opening) connection to the terminal endpoint.
type Channel interface {
	// Send transmits p as a single text frame.  It fails with
	// ErrNotConnected before the channel opens and ErrTransportClosed
	// after it closes.
	Send(p []byte) error

	// Close tears the channel down.  A dial still in flight is
	// abandoned.  The sink still receives its Closed event.
	Close() error

	// Target is the URL the channel was opened against.
	Target() string
}

// Sink receives a channel's lifecycle events.  For a given channel the
// events come from one goroutine in order: at most one Opened, then any
// number of Received, then exactly one Closed.  Nothing follows Closed.
type Sink interface {
	Opened(ch Channel)
	Received(ch Channel, msg Message)
	Closed(ch Channel, err error)
}

// Opener starts a new Channel.  Open returns immediately; the outcome
// of the dial is reported to sink.
type Opener interface {
	Open(ctx context.Context, target string, sink Sink) Channel
}

// Dialer opens the stream connection a Channel runs over, either
// directly or through an SSH gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases long-lived resources (an SSH client).  Stateless
	// dialers return nil.
	Close() error
}
