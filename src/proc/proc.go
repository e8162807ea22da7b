// Package proc implements the process abstraction and the process
// table (spec section 4.5): per-process address space, saved
// register/stack snapshots, the fd map, and parent/child bookkeeping.
// biscuit's own proc package shipped with no retrieved source in this
// pack (a bare go.mod stub), so this is written fresh in the idiom the
// rest of this tree already established for vm/mem: a locked struct
// wrapping plain Go state, table lookups via the adapted hashtable
// package, panics reserved for invariant violations rather than
// recoverable error paths.
package proc

import (
	"sync"

	"accnt"
	"defs"
	"fd"
	"vm"
)

// UserTop is the top of user virtual memory: the user stack starts
// just below it and grows down.
const UserTop = vm.KERNBASE

// InitPid is reserved at boot for the init process (spec section 4.5,
// "init PID is fixed").
const InitPid defs.Pid_t = 1

// Regs_t is the frozen snapshot of general-purpose registers taken on
// every kernel entry (interrupt, syscall, or voluntary yield).
type Regs_t struct {
	Eax, Ebx, Ecx, Edx uint32
	Esi, Edi, Ebp      uint32
}

// Trapframe_t is the hardware-pushed interrupt stack snapshot: what
// the CPU itself saves on the way into a trap.
type Trapframe_t struct {
	Err                        uint32
	Eip, Cs, Eflags, Esp, Ss uint32
}

// fdslot_t is one entry in a process's fd map: the local small-integer
// fd mapped to the file table's global key.
type fdslot_t struct {
	key   int
	perms int
}

// Process_t is one process: its address space, saved state, open
// files, and position in the process tree.
type Process_t struct {
	sync.Mutex

	Pid    defs.Pid_t
	Ppid   defs.Pid_t
	Status defs.Procstatus_t

	PDT *vm.PDT_t
	Regs Regs_t
	Tf   Trapframe_t

	StackSize uintptr // current user-stack reservation, in bytes

	fds      map[int]fdslot_t
	Children []defs.Pid_t

	// WaitStatus is set by the process's own exit and read by the
	// parent's waitpid; WakeCh is how the signal manager resumes a
	// sleeping process without a patched-runtime thread-local (the
	// teacher's tinfo.Tnote_t used a runtime-backed Cond var for the
	// same purpose -- this channel is the stdlib-only substitute).
	WaitStatus int
	WakeCh     chan struct{}

	// Accnt is this process's share of the D_PROF device (SPEC_FULL.md
	// section 10): the timer vector ticks it, scall.Dispatch counts
	// syscalls into it, and accnt.Profile turns a snapshot of every
	// live process's counters into a pprof-format profile on read.
	Accnt accnt.Accnt_t
}

// New creates a fresh, empty process with its own PDT and fd map.
func New(pid, ppid defs.Pid_t) *Process_t {
	return &Process_t{
		Pid:    pid,
		Ppid:   ppid,
		Status: defs.PROC_RUNNABLE,
		PDT:    vm.New(),
		fds:    map[int]fdslot_t{},
		WakeCh: make(chan struct{}, 1),
	}
}

// AddFd installs a global file-table key under the lowest unused local
// fd number and returns it.
func (p *Process_t) AddFd(key int, perms int) int {
	p.Lock()
	defer p.Unlock()
	n := 0
	for {
		if _, taken := p.fds[n]; !taken {
			break
		}
		n++
	}
	p.fds[n] = fdslot_t{key: key, perms: perms}
	return n
}

// GetFdKey returns the global file-table key for local fd lfd, or 0 if
// there is no such descriptor.
func (p *Process_t) GetFdKey(lfd int) int {
	p.Lock()
	defer p.Unlock()
	s, ok := p.fds[lfd]
	if !ok {
		return 0
	}
	return s.key
}

// CloseFd removes lfd from the process's fd map and releases its
// reference on the global file table.
func (p *Process_t) CloseFd(lfd int) defs.Err_t {
	p.Lock()
	s, ok := p.fds[lfd]
	if !ok {
		p.Unlock()
		return -defs.EBADF
	}
	delete(p.fds, lfd)
	p.Unlock()
	return fd.Gfiles.CloseFile(s.key)
}

// ForkDuplicate builds child as a copy of parent (spec section 4.5):
// register and stack snapshots, fd map (with a global refcount bump
// per entry), and an independently-backed duplicate of the user
// address space. The child's child list starts empty and its status
// is runnable.
func ForkDuplicate(parent *Process_t, childPid defs.Pid_t) (*Process_t, defs.Err_t) {
	parent.Lock()
	defer parent.Unlock()

	child := New(childPid, parent.Pid)
	child.Regs = parent.Regs
	child.Tf = parent.Tf
	child.StackSize = parent.StackSize

	npdt, ok := parent.PDT.DuplicateUserSpace(UserTop)
	if !ok {
		return nil, -defs.ENOMEM
	}
	child.PDT = npdt

	for lfd, s := range parent.fds {
		if err := fd.Gfiles.CopyFile(s.key); err != 0 {
			return nil, err
		}
		child.fds[lfd] = s
	}
	return child, 0
}

// ExecDuplicate carries forward the bookkeeping execve keeps from the
// process it replaces -- fd map, PPID, child list -- while the address
// space itself is built fresh by the caller from the new executable's
// image (spec section 4.5: "address space is built fresh from the
// executable image").
func ExecDuplicate(old *Process_t, freshPDT *vm.PDT_t) *Process_t {
	old.Lock()
	defer old.Unlock()

	np := New(old.Pid, old.Ppid)
	np.PDT = freshPDT
	np.Children = append([]defs.Pid_t{}, old.Children...)
	for lfd, s := range old.fds {
		np.fds[lfd] = s
	}
	return np
}

// SetUserStack grows the user stack downward to newSize bytes. It
// fails if the new region would collide with an existing user mapping
// or the kernel runs out of physical memory partway through.
func (p *Process_t) SetUserStack(newSize uintptr) defs.Err_t {
	p.Lock()
	defer p.Unlock()

	if newSize <= p.StackSize {
		return 0
	}
	oldBase := vm.Va_t(uintptr(UserTop) - p.StackSize)
	newBase := vm.Va_t(uintptr(UserTop) - newSize)

	mapped := make([]vm.Va_t, 0, 8)
	for v := newBase; v < oldBase; v += vm.Va_t(vm.PGSIZE) {
		if !p.PDT.Allocate(v, vm.PTE_P|vm.PTE_W|vm.PTE_U, nil, nil) {
			for _, m := range mapped {
				p.PDT.Free(m, true)
			}
			return -defs.ENOMEM
		}
		mapped = append(mapped, v)
	}
	p.StackSize = newSize
	return 0
}
