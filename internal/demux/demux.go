// Package demux routes inbound terminal messages.
//
// The dashboard can frame traffic in a JSON envelope {"Type": "c"|"d",
// "Data": ...}, but in practice it sends plain terminal output.  Every
// message that is not exactly such an envelope is passed through to the
// surface untouched.
package demux

import (
	"bytes"
	"encoding/json"
	"io"

	"lcxterm/internal/metrics"
	"lcxterm/util"
)

// Kind is the classification of one inbound message.
type Kind int

const (
	Raw Kind = iota
	Control
	Data
)

func (k Kind) String() string {
	switch k {
	case Control:
		return "control"
	case Data:
		return "data"
	default:
		return "raw"
	}
}

// Envelope discriminants.
const (
	TypeControl = "c"
	TypeData    = "d"
)

// Classify decides how p should be handled.  For Control and Data it
// also returns the envelope's Data field (nil when absent).  Field
// names are matched exactly.
func Classify(p []byte) (Kind, json.RawMessage) {
	trimmed := bytes.TrimSpace(p)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Raw, nil
	}
	rawType, ok := fields["Type"]
	if !ok {
		return Raw, nil
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return Raw, nil
	}

	switch typ {
	case TypeControl:
		return Control, fields["Data"]
	case TypeData:
		return Data, fields["Data"]
	}
	return Raw, nil
}

// Handler receives the payload of a control or data envelope.
type Handler func(payload json.RawMessage)

// Demuxer dispatches messages to their handlers.  Nil handlers fall
// back to logging the packet at debug level.
type Demuxer struct {
	Control Handler
	Data    Handler
	Raw     io.Writer

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Dispatch classifies p and hands it to the matching handler.  Only a
// failed write to Raw is reported.
func (d *Demuxer) Dispatch(p []byte) error {
	kind, payload := Classify(p)
	switch kind {
	case Control:
		d.Metrics.ControlPacket()
		d.handle(d.Control, kind, payload)
	case Data:
		d.Metrics.DataPacket()
		d.handle(d.Data, kind, payload)
	default:
		d.Metrics.RawMessage()
		if d.Raw == nil {
			return nil
		}
		if _, err := d.Raw.Write(p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Demuxer) handle(h Handler, kind Kind, payload json.RawMessage) {
	if h != nil {
		h(payload)
		return
	}
	if d.Logger != nil {
		d.Logger.Debug("%s packet: %s", kind, payload)
	}
}
