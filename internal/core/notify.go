package core

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Notifier shows one-line messages the user must see even when logging
// is quiet, such as a proxy command the dashboard rejected.  Color is
// used only when the output is a terminal that supports it.
type Notifier struct {
	out *termenv.Output
}

// NewNotifier returns a Notifier writing to w.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{out: termenv.NewOutput(w)}
}

// Error prints err highlighted.
func (n *Notifier) Error(err error) {
	msg := n.out.String("lcxterm: " + err.Error()).Foreground(n.out.Color("1")).Bold()
	fmt.Fprintln(n.out, msg.String())
}

// Info prints msg plainly.
func (n *Notifier) Info(msg string) {
	fmt.Fprintln(n.out, "lcxterm: "+msg)
}
