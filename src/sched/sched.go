// Package sched implements the round-robin scheduler (spec section
// 4.7): choosing the next runnable process, owning the "currently
// active" identity, and the four switch-block flags that inhibit a
// timer-driven context switch while the kernel holds transient,
// process-private state.
//
// biscuit's own scheduler ran as a goroutine parked/woken by the
// patched runtime; this tree has no such runtime, so Yield's "re-enter
// dispatch via a software interrupt" is modeled as a direct call back
// into the same NextProc path a timer tick would take -- the simulated
// equivalent of int $T_YIELD, consistent with the rest of this tree's
// hardware substitutions (see stats.Rdtsc, mem.Physmem.Dmap).
package sched

import (
	"sort"
	"sync"

	"defs"
	"proc"
)

// Flags_t is the four switch-block flags (spec section 4.7): while any
// is set, a timer tick must not invoke NextProc.
type Flags_t struct {
	SwitchInProgress bool
	StillInitialising bool
	InExec           bool
	InNotify         bool
}

func (f Flags_t) blocked() bool {
	return f.SwitchInProgress || f.StillInitialising || f.InExec || f.InNotify
}

// Scheduler_t is the round-robin scheduler. One instance owns the
// process table and the switch-block flags for the single CPU this
// kernel runs on.
type Scheduler_t struct {
	sync.Mutex

	pt      *proc.ProcTable_t
	flags   Flags_t
	cursor  defs.Pid_t // last PID dispatched; recorded only, pickNext searches from the active PID
}

// New returns a scheduler driving pt.
func New(pt *proc.ProcTable_t) *Scheduler_t {
	return &Scheduler_t{pt: pt}
}

// Flags returns the current switch-block flags.
func (s *Scheduler_t) Flags() Flags_t {
	s.Lock()
	defer s.Unlock()
	return s.flags
}

// SetFlag sets or clears one of the four switch-block flags.
func (s *Scheduler_t) SetFlag(which *bool, set bool) {
	s.Lock()
	defer s.Unlock()
	*which = set
}

// Start swaps the init process in and reports whether that succeeded.
// It returns to its caller (boot) in both cases; it does not load
// init's trap frame onto a CPU or enter user mode.
func (s *Scheduler_t) Start(initPid defs.Pid_t) bool {
	return s.pt.SwapIn(initPid)
}

// NextProc chooses the next runnable process relative to the
// currently active one. If the choice is unchanged, it returns with no
// side effect; otherwise it swaps the current process out (saving ir/
// is) and the new one in. When no process is runnable -- the table is
// empty, or every process in it is sleeping or a zombie -- it switches
// nothing and returns ok=false; it does not itself shut the kernel
// down.
func (s *Scheduler_t) NextProc(ir proc.Regs_t, is proc.Trapframe_t) (defs.Pid_t, bool) {
	runnable := s.pt.Runnable()
	if len(runnable) == 0 {
		return 0, false // shutdown: nothing left to run
	}
	sort.Slice(runnable, func(i, j int) bool { return runnable[i] < runnable[j] })

	cur, haveCur := s.pt.Active()
	next := pickNext(runnable, cur)

	if haveCur && next == cur {
		return cur, true
	}
	if haveCur {
		s.pt.SwapOut(cur, ir, is)
	}
	if !s.pt.SwapIn(next) {
		return 0, false
	}
	s.Lock()
	s.cursor = next
	s.Unlock()
	return next, true
}

// pickNext returns the first entry of runnable (sorted ascending)
// strictly greater than cur, wrapping to runnable[0] if none is.
func pickNext(runnable []defs.Pid_t, cur defs.Pid_t) defs.Pid_t {
	for _, pid := range runnable {
		if pid > cur {
			return pid
		}
	}
	return runnable[0]
}

// Yield unconditionally clears all four switch-block flags and
// re-enters dispatch so the normal save path captures the caller's
// current register state before handing off to whatever runs next.
func (s *Scheduler_t) Yield(ir proc.Regs_t, is proc.Trapframe_t) (defs.Pid_t, bool) {
	s.Lock()
	s.flags = Flags_t{}
	s.Unlock()
	return s.NextProc(ir, is)
}

// ShouldSwitch reports whether a timer tick is allowed to invoke
// NextProc right now -- false while any switch-block flag is set.
func (s *Scheduler_t) ShouldSwitch() bool {
	return !s.Flags().blocked()
}
