package surface

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/term"

	ncerr "lcxterm/internal/errors"
	"lcxterm/util"
)

// TTY is a Surface over the process's own terminal.
type TTY struct {
	in     io.Reader
	out    io.Writer
	logger *util.Logger

	mu    sync.Mutex
	state *term.State
	fd    int
	size  Size
}

type fdReader interface {
	io.Reader
	Fd() uintptr
}

// NewTTY returns a surface reading keys from in and rendering to out.
// Raw mode is only possible when in is a terminal *os.File.
func NewTTY(in io.Reader, out io.Writer, logger *util.Logger) *TTY {
	return &TTY{in: in, out: out, logger: logger, fd: -1}
}

// Open switches the input terminal to raw mode so keystrokes arrive one
// by one and are not echoed.  On failure the terminal is left as it was
// and the error wraps ErrSurfaceUnavailable; the TTY remains usable in
// cooked mode.
func (t *TTY) Open() error {
	f, ok := t.in.(fdReader)
	if !ok {
		return fmt.Errorf("%w: input is not a file", ncerr.ErrSurfaceUnavailable)
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("%w: input is not a terminal", ncerr.ErrSurfaceUnavailable)
	}
	st, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("%w: raw mode: %v", ncerr.ErrSurfaceUnavailable, err)
	}

	t.mu.Lock()
	t.state = st
	t.fd = fd
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.SetRaw(true)
	}
	return nil
}

// Restore puts the terminal back the way Open found it.
func (t *TTY) Restore() error {
	t.mu.Lock()
	st, fd := t.state, t.fd
	t.state = nil
	t.mu.Unlock()

	if st == nil {
		return nil
	}
	if t.logger != nil {
		t.logger.SetRaw(false)
	}
	return term.Restore(fd, st)
}

// Raw reports whether the terminal is in raw mode.
func (t *TTY) Raw() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != nil
}

func (t *TTY) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Write(p)
}

// Resize requests a new geometry from the terminal emulator.  Emulators
// that ignore the request are not an error.
func (t *TTY) Resize(size Size) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = size
	_, err := io.WriteString(t.out, resizeSeq(size))
	return err
}

// Size returns the geometry last applied with Resize.
func (t *TTY) Size() Size {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

func (t *TTY) SetTitle(title string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.out, titleSeq(title))
	return err
}

// ReadKeys reads input until EOF, a read error, ctx ending, or the
// escape byte.  Each read is passed to post as its own chunk.  Bytes
// before an escape byte in the same read are still posted; the escape
// itself is not, and ReadKeys returns ErrEscape.  Set hasEscape to
// false to disable the escape byte.
//
// A blocked read is not interrupted by ctx; the caller should not wait
// for ReadKeys to return once it has decided to quit.
func (t *TTY) ReadKeys(ctx context.Context, escape byte, hasEscape bool, post func([]byte)) error {
	buf := make([]byte, 4096)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if hasEscape {
				if i := bytes.IndexByte(chunk, escape); i >= 0 {
					if i > 0 {
						post(chunk[:i])
					}
					return ncerr.ErrEscape
				}
			}
			post(chunk)
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
