package config

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Kind tags the dynamic type of a launch parameter value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
)

// Value is one decoded launch parameter.  Launch URLs are written by the
// dashboard page, which types its values loosely: "true" is a boolean,
// "2222" is a number, an empty value is null.
type Value struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
}

// ParseValue applies the launch-parameter typing rules to a decoded
// value: blank → null, true/false (any case) → bool, finite numeric text
// → number, anything else → the raw string.
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Value{Kind: KindNull}
	}
	switch strings.ToLower(raw) {
	case "true":
		return Value{Kind: KindBool, Bool: true}
	case "false":
		return Value{Kind: KindBool, Bool: false}
	}
	if n, ok := parseNumber(trimmed); ok {
		return Value{Kind: KindNumber, Num: n}
	}
	return Value{Kind: KindString, Str: raw}
}

// parseNumber accepts decimal and exponent notation only.  ParseFloat
// also understands "inf", "nan", hex floats and digit underscores; none
// of those count as numeric here.
func parseNumber(s string) (float64, bool) {
	if strings.ContainsAny(s, "_xXpP") {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// IsNull reports whether the value is absent or blank.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value the way it would appear in a URL or title.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// Params is the decoded launch-parameter set.
type Params map[string]Value

// Get returns the value for key, or null if absent.
func (p Params) Get(key string) Value {
	if v, ok := p[key]; ok {
		return v
	}
	return Value{Kind: KindNull}
}

// ParseLaunchParams decodes a raw query string (with or without the
// leading "?").  Pairs are split on "&" and on the first "="; keys and
// values are percent-decoded without treating "+" as a space.  A pair
// with no "=" is null.  Later duplicates win.
func ParseLaunchParams(query string) Params {
	query = strings.TrimPrefix(query, "?")
	out := Params{}
	if query == "" {
		return out
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, raw, hasValue := strings.Cut(pair, "=")
		key = decodeComponent(key)
		if key == "" {
			continue
		}
		if !hasValue {
			out[key] = Value{Kind: KindNull}
			continue
		}
		out[key] = ParseValue(decodeComponent(raw))
	}
	return out
}

func decodeComponent(s string) string {
	d, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return d
}

// ── Connection parameters ────────────────────────────────────────────

// Launch parameter keys.
const (
	ParamID         = "id"
	ParamLocalIP    = "localip"
	ParamLocalPort  = "localport"
	ParamRemoteIP   = "remoteip"
	ParamRemotePort = "remoteport"
	ParamTermType   = "termtype"
)

// ConnectionParams is the immutable description of the proxy a terminal
// session is attached to.  It is built once at startup and reused
// verbatim on every reconnect.  Only SessionID is ever transmitted; the
// rest is for display.
type ConnectionParams struct {
	SessionID     Value
	LocalAddress  Value
	LocalPort     Value
	RemoteAddress Value
	RemotePort    Value
	TerminalType  Value
}

// ConnectionParamsFrom picks the known keys out of a parameter set.
func ConnectionParamsFrom(p Params) ConnectionParams {
	return ConnectionParams{
		SessionID:     p.Get(ParamID),
		LocalAddress:  p.Get(ParamLocalIP),
		LocalPort:     p.Get(ParamLocalPort),
		RemoteAddress: p.Get(ParamRemoteIP),
		RemotePort:    p.Get(ParamRemotePort),
		TerminalType:  p.Get(ParamTermType),
	}
}

// ID returns the session identifier as sent on the wire.
func (c ConnectionParams) ID() string { return c.SessionID.String() }

// Title is the one-line description shown above the terminal.
func (c ConnectionParams) Title() string {
	return "LocalAddr: " + c.LocalAddress.String() + ":" + c.LocalPort.String() +
		", RemoteAddr: " + c.RemoteAddress.String() + ":" + c.RemotePort.String() +
		", TermType: " + c.TerminalType.String()
}
