// Package surface is the terminal a session renders onto and reads
// keystrokes from.  Rendering itself (glyphs, scrollback, escape
// sequences) is left to the user's terminal emulator; the surface only
// moves bytes and issues the two xterm requests lcxterm needs.
package surface

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Size bounds.  Anything smaller than MinSize, or not a number, is
// raised to MinSize.
const (
	MinSize = 5
	MaxSize = 65535
)

// Default geometry applied when the session starts.
const (
	DefaultRows = 32
	DefaultCols = 150
)

// Size is a terminal geometry in character cells.
type Size struct {
	Rows int
	Cols int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Cols, s.Rows) }

// Surface renders terminal output.
type Surface interface {
	io.Writer

	// Resize asks the terminal to change its geometry.
	Resize(size Size) error

	// SetTitle sets the window title.
	SetTitle(title string) error
}

// ParseSize turns free-form row and column text into a usable Size.
// Each field is handled on its own.
func ParseSize(rows, cols string) Size {
	return Size{Rows: parseDim(rows), Cols: parseDim(cols)}
}

func parseDim(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !isRangeErr(err) {
		return MinSize
	}
	switch {
	case math.IsNaN(f), f < MinSize:
		return MinSize
	case f > MaxSize:
		return MaxSize
	}
	return int(f)
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// resizeSeq is the xterm window-manipulation request for size.
func resizeSeq(size Size) string {
	return fmt.Sprintf("\x1b[8;%d;%dt", size.Rows, size.Cols)
}

// titleSeq is the OSC 0 request for title, with control characters
// removed so a hostile parameter cannot end the sequence early.
func titleSeq(title string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, title)
	return "\x1b]0;" + clean + "\x07"
}
