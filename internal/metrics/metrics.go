// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a terminal session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one lcxterm session.
type Collector struct {
	transportsOpened  atomic.Int64
	transportsClosed  atomic.Int64
	reconnectRequests atomic.Int64
	keystrokesSent    atomic.Int64
	keystrokesDropped atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	controlPackets    atomic.Int64
	dataPackets       atomic.Int64
	rawMessages       atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Transport lifecycle ──────────────────────────────────────────────

// TransportOpened records a transport reaching the open state.
func (c *Collector) TransportOpened() {
	if c == nil {
		return
	}
	c.transportsOpened.Add(1)
}

// TransportClosed records a close event, including failed dials.
func (c *Collector) TransportClosed() {
	if c == nil {
		return
	}
	c.transportsClosed.Add(1)
}

// ReconnectRequested records a user-initiated reconnect.
func (c *Collector) ReconnectRequested() {
	if c == nil {
		return
	}
	c.reconnectRequests.Add(1)
}

// TransportsOpened returns how many transports reached the open state.
func (c *Collector) TransportsOpened() int64 {
	if c == nil {
		return 0
	}
	return c.transportsOpened.Load()
}

// TransportsClosed returns the number of observed close events.
func (c *Collector) TransportsClosed() int64 {
	if c == nil {
		return 0
	}
	return c.transportsClosed.Load()
}

// ReconnectRequests returns the number of user-initiated reconnects.
func (c *Collector) ReconnectRequests() int64 {
	if c == nil {
		return 0
	}
	return c.reconnectRequests.Load()
}

// ── Keystrokes and bytes ─────────────────────────────────────────────

// KeystrokeSent records n bytes of input forwarded to the transport.
func (c *Collector) KeystrokeSent(n int) {
	if c == nil {
		return
	}
	c.keystrokesSent.Add(1)
	c.bytesOut.Add(int64(n))
}

// KeystrokeDropped records input discarded because no transport was open.
func (c *Collector) KeystrokeDropped() {
	if c == nil {
		return
	}
	c.keystrokesDropped.Add(1)
}

// BytesReceived records n bytes read from the transport.
func (c *Collector) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.bytesIn.Add(int64(n))
}

// KeystrokesSent returns the number of forwarded keystrokes.
func (c *Collector) KeystrokesSent() int64 {
	if c == nil {
		return 0
	}
	return c.keystrokesSent.Load()
}

// KeystrokesDropped returns the number of discarded keystrokes.
func (c *Collector) KeystrokesDropped() int64 {
	if c == nil {
		return 0
	}
	return c.keystrokesDropped.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Message kinds ────────────────────────────────────────────────────

// ControlPacket counts an inbound control envelope.
func (c *Collector) ControlPacket() {
	if c == nil {
		return
	}
	c.controlPackets.Add(1)
}

// DataPacket counts an inbound data envelope.
func (c *Collector) DataPacket() {
	if c == nil {
		return
	}
	c.dataPackets.Add(1)
}

// RawMessage counts an inbound message passed straight to the surface.
func (c *Collector) RawMessage() {
	if c == nil {
		return
	}
	c.rawMessages.Add(1)
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	TransportsOpened  int64  `json:"transports_opened"`
	TransportsClosed  int64  `json:"transports_closed"`
	ReconnectRequests int64  `json:"reconnect_requests"`
	KeystrokesSent    int64  `json:"keystrokes_sent"`
	KeystrokesDropped int64  `json:"keystrokes_dropped"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	ControlPackets    int64  `json:"control_packets"`
	DataPackets       int64  `json:"data_packets"`
	RawMessages       int64  `json:"raw_messages"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		TransportsOpened:  c.transportsOpened.Load(),
		TransportsClosed:  c.transportsClosed.Load(),
		ReconnectRequests: c.reconnectRequests.Load(),
		KeystrokesSent:    c.keystrokesSent.Load(),
		KeystrokesDropped: c.keystrokesDropped.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		ControlPackets:    c.controlPackets.Load(),
		DataPackets:       c.dataPackets.Load(),
		RawMessages:       c.rawMessages.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
