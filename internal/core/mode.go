// Package core is the orchestration layer.  It turns a Config into a
// runnable mode and wires the session, surface, transport and REST
// client together for it.
//
// Architecture layers (bottom → top):
//
//	transport, surface, demux  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode is one complete way of running lcxterm.  Each mode owns its
// lifecycle from setup to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
