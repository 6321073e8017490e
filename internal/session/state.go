package session

import "bytes"

// State is the login phase of a session.
type State int

const (
	// AwaitingConnection: no open transport.  Enter dials a new one.
	AwaitingConnection State = iota
	// SendingUsername: transport open, the user is typing a login name.
	SendingUsername
	// SendingPassword: the user is typing a password.
	SendingPassword
	// ShellIO: logged in; everything goes to the remote shell.
	ShellIO
)

func (s State) String() string {
	switch s {
	case AwaitingConnection:
		return "AwaitingConnection"
	case SendingUsername:
		return "SendingUsername"
	case SendingPassword:
		return "SendingPassword"
	case ShellIO:
		return "ShellIO"
	default:
		return "State(?)"
	}
}

// Action is what to do with a keystroke.
type Action int

const (
	Drop    Action = iota // discard
	Forward               // send to the transport
	Connect               // open a new transport
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case Connect:
		return "connect"
	default:
		return "drop"
	}
}

// Transition is the outcome of one keystroke.
type Transition struct {
	Next   State
	Echo   string // written to the surface before the keystroke is sent
	Action Action
}

// Local feedback for the end of each login field.  Nothing the user
// types is echoed locally; only the line break is.
const (
	usernameEcho = "\n"
	passwordEcho = "\r\n"
)

// Step is the transition table.  key is one keystroke as produced by
// nextKey; only its final byte decides whether it ends a line.
func Step(st State, key []byte) Transition {
	var last byte
	if len(key) > 0 {
		last = key[len(key)-1]
	}
	eol := last == '\r' || last == '\n'

	switch st {
	case AwaitingConnection:
		if last == '\r' || bytes.HasSuffix(key, []byte("\r\n")) {
			return Transition{Next: AwaitingConnection, Action: Connect}
		}
		return Transition{Next: AwaitingConnection, Action: Drop}
	case SendingUsername:
		if eol {
			return Transition{Next: SendingPassword, Echo: usernameEcho, Action: Forward}
		}
		return Transition{Next: SendingUsername, Action: Forward}
	case SendingPassword:
		if eol {
			return Transition{Next: ShellIO, Echo: passwordEcho, Action: Forward}
		}
		return Transition{Next: SendingPassword, Action: Forward}
	default:
		return Transition{Next: st, Action: Forward}
	}
}

// nextKey returns the first keystroke in chunk: everything up to and
// including the first line end, or the whole chunk if it has none.  A
// line end is CR, LF, or CR LF taken together.  A paste of
// "root\rpw\r" is consumed as "root\r" then "pw\r", so each login
// field is forwarded whole and still moves the machine one step.
func nextKey(chunk []byte) []byte {
	for i, b := range chunk {
		switch b {
		case '\r':
			if i+1 < len(chunk) && chunk[i+1] == '\n' {
				return chunk[:i+2]
			}
			return chunk[:i+1]
		case '\n':
			return chunk[:i+1]
		}
	}
	return chunk
}
