package proc

import (
	"sync"

	"defs"
	"hashtable"
)

// ProcTable_t is the process table (spec section 4.5): a PID → Process
// map, with PIDs allocated by incremental search starting one past the
// last issued PID and wrapping at maxPid.
type ProcTable_t struct {
	sync.Mutex

	ht      *hashtable.Hashtable_t
	lastPid defs.Pid_t
	maxPid  defs.Pid_t
	active  defs.Pid_t
}

// MkProcTable allocates an empty table sized for up to maxPid live
// processes (spec's "configured max" that PID allocation wraps at).
func MkProcTable(maxPid defs.Pid_t) *ProcTable_t {
	return &ProcTable_t{
		ht:      hashtable.MkHash(int(maxPid) + 1),
		lastPid: InitPid,
		maxPid:  maxPid,
	}
}

// Add installs p under a freshly allocated PID and returns it.
func (pt *ProcTable_t) Add(p *Process_t) defs.Pid_t {
	pt.Lock()
	defer pt.Unlock()

	cand := pt.lastPid
	for i := defs.Pid_t(0); i < pt.maxPid; i++ {
		cand++
		if cand > pt.maxPid {
			cand = InitPid + 1
		}
		if _, ok := pt.ht.Get(int(cand)); !ok {
			p.Pid = cand
			pt.ht.Set(int(cand), p)
			pt.lastPid = cand
			return cand
		}
	}
	panic("proc: process table exhausted")
}

// AddInit installs the init process under the reserved InitPid.
func (pt *ProcTable_t) AddInit(p *Process_t) {
	pt.Lock()
	defer pt.Unlock()
	p.Pid = InitPid
	pt.ht.Set(int(InitPid), p)
	pt.lastPid = InitPid
}

// AddExisting installs p under the PID it already carries, replacing
// whatever was there. execve uses this to swap a freshly built process
// into the slot the exec'ing process occupied (spec section 4.9:
// "swap them in the ProcTable entry") without going through PID
// allocation a second time.
func (pt *ProcTable_t) AddExisting(p *Process_t) {
	pt.Lock()
	defer pt.Unlock()
	pt.ht.Set(int(p.Pid), p)
}

// Get returns the process for pid, if any.
func (pt *ProcTable_t) Get(pid defs.Pid_t) (*Process_t, bool) {
	v, ok := pt.ht.Get(int(pid))
	if !ok {
		return nil, false
	}
	return v.(*Process_t), true
}

// Del removes pid from the table.
func (pt *ProcTable_t) Del(pid defs.Pid_t) {
	pt.ht.Del(int(pid))
}

// Len reports how many processes are currently in the table.
func (pt *ProcTable_t) Len() int {
	return pt.ht.Size()
}

// SwapIn installs pid's PDT and transitions it to active. It requires
// the process be runnable or already active.
func (pt *ProcTable_t) SwapIn(pid defs.Pid_t) bool {
	p, ok := pt.Get(pid)
	if !ok {
		return false
	}
	p.Lock()
	defer p.Unlock()
	if p.Status != defs.PROC_RUNNABLE && p.Status != defs.PROC_ACTIVE {
		return false
	}
	p.Status = defs.PROC_ACTIVE
	p.PDT.Load()

	pt.Lock()
	pt.active = pid
	pt.Unlock()
	return true
}

// SwapOut saves ir/is into pid's process and transitions it from
// active back to runnable, unless something (the signal manager)
// already moved it to sleeping in the meantime.
func (pt *ProcTable_t) SwapOut(pid defs.Pid_t, ir Regs_t, is Trapframe_t) {
	p, ok := pt.Get(pid)
	if !ok {
		return
	}
	p.Lock()
	defer p.Unlock()
	p.Regs = ir
	p.Tf = is
	if p.Status == defs.PROC_ACTIVE {
		p.Status = defs.PROC_RUNNABLE
	}
}

// Active returns the currently active PID, and whether one is set.
func (pt *ProcTable_t) Active() (defs.Pid_t, bool) {
	pt.Lock()
	defer pt.Unlock()
	return pt.active, pt.active != 0
}

// All returns every process currently in the table, in no particular
// order -- the D_PROF device's only caller walks the whole table to
// snapshot every process's accounting counters.
func (pt *ProcTable_t) All() []*Process_t {
	var out []*Process_t
	pt.ht.Iter(func(k, v interface{}) bool {
		out = append(out, v.(*Process_t))
		return false
	})
	return out
}

// Runnable returns every PID currently eligible to run, in the order
// the table happens to store them -- round-robin scheduling treats
// this as an unordered ready set, not an ordered queue.
func (pt *ProcTable_t) Runnable() []defs.Pid_t {
	var out []defs.Pid_t
	pt.ht.Iter(func(k, v interface{}) bool {
		p := v.(*Process_t)
		p.Lock()
		st := p.Status
		p.Unlock()
		if st == defs.PROC_RUNNABLE || st == defs.PROC_ACTIVE {
			out = append(out, defs.Pid_t(k.(int)))
		}
		return false
	})
	return out
}
