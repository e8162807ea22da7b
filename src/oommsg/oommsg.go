// Package oommsg carries low-memory telemetry out of allocation paths
// so a logger can report them. Its one sender in this tree is the
// kernel heap's growth path, which reports the shortfall here just
// before it panics (spec section 4.3 / 7).
package oommsg

// OomCh carries one message per reported allocation shortfall for the
// logger to drain and report. Nothing waits for a reply: the caller
// has already decided how to fail before reporting here. Fork,
// user-stack growth and duplicate_user_space fail without sending
// anything on this channel.
var OomCh chan Oommsg_t = make(chan Oommsg_t, 16)

// Oommsg_t describes one allocation shortfall.
type Oommsg_t struct {
	Where string
	Need  int
}

// Warn reports a shortfall without blocking the caller if nothing is
// currently draining OomCh.
func Warn(where string, need int) {
	select {
	case OomCh <- Oommsg_t{Where: where, Need: need}:
	default:
	}
}
