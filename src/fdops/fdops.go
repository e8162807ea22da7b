// Package fdops defines the interfaces that let the syscall layer,
// the signal manager, and the per-process file-descriptor table talk
// to any open file description without knowing whether it is backed
// by a TTY, a raw disk device, or a file on the simulated ATA disk.
package fdops

import "defs"

// Userio_i is anything that can move bytes to or from a caller, page
// by page, without the mover needing to know whether the bytes live
// in a real user address space (vm.Userbuf_t) or a plain kernel slice
// (vm.Fakeubuf_t, used by kernel-internal callers such as the keyboard
// driver's input queue).
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

// Fdops_i is the operation set every open file description exposes.
// A device driver or file implements this once; every fd pointing at
// it (after fork or dup) shares the same implementation.
type Fdops_i interface {
	Close() defs.Err_t
	Reopen() defs.Err_t
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)

	// Pollcheck reports which of the requested events (a subset of
	// defs.POLLIN|POLLPRI|POLLOUT) are immediately true, without
	// blocking. It is the "poll_check" primitive spec section 4.8
	// calls for: poll() calls it once per fd before ever sleeping,
	// and again is never required to block.
	Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t)
}

// Pollmsg_t is one registered interest: a single process waiting on a
// single open file description for a subset of events. The signal
// manager's pending-poll list is built out of these; notify_file
// walks it by global file-table key, the poll() caller's ProcTable
// key is how a satisfied entry finds its way back to the sleeping
// process.
type Pollmsg_t struct {
	Pid     defs.Pid_t
	Key     int // global file-description table key
	Events  defs.Ready_t
	Revents defs.Ready_t
}

// Satisfied reports whether any of the requested events have already
// been recorded in Revents.
func (pm *Pollmsg_t) Satisfied() bool {
	return pm.Revents&pm.Events != defs.POLLNONE
}
