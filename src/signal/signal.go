// Package signal implements the Signal Manager (spec section 4.8):
// blocking poll on devices, waitpid on children, and tick-based
// timeouts. biscuit's own signal-manager package shipped with no
// retrieved source in this pack, so the design here is new, grounded
// on two things this tree already has: fdops.Pollmsg_t (the teacher's
// own per-fd wait record shape, biscuit/src/fdops) for the poll side,
// and proc.Process_t.WakeCh (this tree's channel-based substitute for
// the teacher's runtime-backed Tnote_t.Killnaps) for the "sleep, then
// get woken" side. A process blocking in Poll or Waitpid parks by
// receiving on its own WakeCh; nothing else needs to run it as a
// goroutine for this to work as long as whatever delivers the wake
// (notify_file/notify_wait/tick_down) runs concurrently -- the timer
// and device-interrupt paths in this tree do, since intr dispatches
// them as they are simulated to arrive.
package signal

import (
	"sync"

	"defs"
	"fd"
	"proc"
)

type pollEntry_t struct {
	pid     defs.Pid_t
	key     int
	events  defs.Ready_t
	revents defs.Ready_t
	// remainMs is the countdown TickDown decrements. <=0 means this
	// entry has no timeout and blocks until notified, matching every
	// existing caller in this tree (scall's read/write wrappers pass
	// 0 wanting an infinite wait); only a positive timeoutMs installs
	// a real countdown.
	remainMs int
}

type waitEntry_t struct {
	pid        defs.Pid_t
	candidates map[defs.Pid_t]bool
	status     int
	satisfied  bool
	by         defs.Pid_t
}

type happened_t struct {
	pid    defs.Pid_t
	status int
}

// Manager_t owns the three lists spec section 4.8 describes: pending
// polls, pending waits, and happened-but-uncollected child events.
type Manager_t struct {
	sync.Mutex

	pt       *proc.ProcTable_t
	polls    []*pollEntry_t
	waits    []*waitEntry_t
	happened []happened_t
}

// New returns an empty signal manager driving the processes in pt.
func New(pt *proc.ProcTable_t) *Manager_t {
	return &Manager_t{pt: pt}
}

func wake(p *proc.Process_t) {
	p.Lock()
	if p.Status == defs.PROC_SLEEPING {
		p.Status = defs.PROC_RUNNABLE
	}
	p.Unlock()
	select {
	case p.WakeCh <- struct{}{}:
	default:
	}
}

// Poll implements spec section 4.8's poll algorithm over reqs, each
// naming a process-local fd. It returns the count of entries with a
// nonzero revents (0 on timeout), writing results back into reqs.
func (m *Manager_t) Poll(p *proc.Process_t, reqs []defs.Pollfd_t, timeoutMs int) (int, defs.Err_t) {
	satisfied, err := m.pollOnce(p, reqs)
	if err != 0 {
		return 0, err
	}
	if satisfied > 0 {
		return satisfied, 0
	}

	m.Lock()
	keys := make([]int, len(reqs))
	for i, r := range reqs {
		keys[i] = p.GetFdKey(int(r.Fd))
		if keys[i] != 0 {
			m.polls = append(m.polls, &pollEntry_t{pid: p.Pid, key: keys[i], events: r.Events, remainMs: timeoutMs})
		}
	}
	m.Unlock()

	p.Lock()
	p.Status = defs.PROC_SLEEPING
	p.Unlock()
	<-p.WakeCh

	m.Lock()
	count := 0
	kept := m.polls[:0]
	for _, e := range m.polls {
		if e.pid != p.Pid {
			kept = append(kept, e)
			continue
		}
		if e.revents != defs.POLLNONE {
			count++
			for i, r := range reqs {
				if int(r.Fd) >= 0 && e.key == keys[i] {
					reqs[i].Revents = e.revents
				}
			}
		}
	}
	m.polls = kept
	m.Unlock()
	return count, 0
}

// pollOnce resolves each request's immediate readiness and returns how
// many are already satisfied, writing revents back into reqs.
func (m *Manager_t) pollOnce(p *proc.Process_t, reqs []defs.Pollfd_t) (int, defs.Err_t) {
	satisfied := 0
	for i := range reqs {
		r := &reqs[i]
		key := p.GetFdKey(int(r.Fd))
		if key == 0 {
			r.Revents = defs.POLLNVAL
			satisfied++
			continue
		}
		if r.Events&^defs.POLLMASK != 0 {
			return 0, -defs.EINVAL
		}
		fdv, e := fd.Gfiles.Get(key)
		if e != 0 {
			r.Revents = defs.POLLNVAL
			satisfied++
			continue
		}
		rev, e := fdv.Fops.Pollcheck(r.Events)
		if e != 0 {
			return 0, e
		}
		if rev != defs.POLLNONE {
			r.Revents = rev
			satisfied++
		}
	}
	return satisfied, 0
}

// NotifyFile scans pending polls for entries on dev whose requested
// events intersect events, sets the intersection into revents, and
// wakes the owning process if it is sleeping.
func (m *Manager_t) NotifyFile(key int, events defs.Ready_t) {
	m.Lock()
	var towake []defs.Pid_t
	for _, e := range m.polls {
		if e.key != key {
			continue
		}
		hit := e.events & events
		if hit == defs.POLLNONE {
			continue
		}
		e.revents |= hit
		towake = append(towake, e.pid)
	}
	m.Unlock()

	for _, pid := range towake {
		if p, ok := m.pt.Get(pid); ok {
			wake(p)
		}
	}
}

// Waitpid implements spec section 4.8's waitpid algorithm: pid==-1
// means any child. wstatusOut receives the exited child's status.
func (m *Manager_t) Waitpid(p *proc.Process_t, pid defs.Pid_t, wstatusOut *int) (defs.Pid_t, defs.Err_t) {
	cands := p.Children
	if len(cands) == 0 {
		return 0, -defs.ECHILD
	}
	wantAny := pid == -1
	if !wantAny {
		found := false
		for _, c := range cands {
			if c == pid {
				found = true
				break
			}
		}
		if !found {
			return 0, -defs.ECHILD
		}
		cands = []defs.Pid_t{pid}
	}

	if hit, ok := m.takeHappened(cands); ok {
		if wstatusOut != nil {
			*wstatusOut = hit.status
		}
		return hit.pid, 0
	}

	set := map[defs.Pid_t]bool{}
	for _, c := range cands {
		set[c] = true
	}
	we := &waitEntry_t{pid: p.Pid, candidates: set}
	m.Lock()
	m.waits = append(m.waits, we)
	m.Unlock()

	p.Lock()
	p.Status = defs.PROC_SLEEPING
	p.Unlock()
	<-p.WakeCh

	m.Lock()
	var out defs.Pid_t
	var st int
	for i, w := range m.waits {
		if w == we {
			out, st = w.by, w.status
			m.waits = append(m.waits[:i], m.waits[i+1:]...)
			break
		}
	}
	m.Unlock()
	if wstatusOut != nil {
		*wstatusOut = st
	}
	return out, 0
}

func (m *Manager_t) takeHappened(cands []defs.Pid_t) (happened_t, bool) {
	m.Lock()
	defer m.Unlock()
	for i, h := range m.happened {
		for _, c := range cands {
			if h.pid == c {
				m.happened = append(m.happened[:i], m.happened[i+1:]...)
				return h, true
			}
		}
	}
	return happened_t{}, false
}

// NotifyWait is called by an exiting process to hand its return status
// to whichever parent (if any) is already waiting on it. The exiter's
// PID and status are copied into the kernel-side slot directly since
// the user-space address a blocked waitpid was given is not valid in
// the currently loaded PDT.
func (m *Manager_t) NotifyWait(exiter defs.Pid_t, status int) {
	m.Lock()
	var waiter *proc.Process_t
	for _, w := range m.waits {
		if !w.candidates[exiter] {
			continue
		}
		w.satisfied = true
		w.by = exiter
		w.status = status
		w.candidates = map[defs.Pid_t]bool{exiter: true}
		if p, ok := m.pt.Get(w.pid); ok {
			waiter = p
		}
		m.Unlock()
		if waiter != nil {
			wake(waiter)
		}
		return
	}
	m.happened = append(m.happened, happened_t{pid: exiter, status: status})
	m.Unlock()
}

// TickDown decrements the timeout of every positive-timeout pending
// poll by ms; any that cross zero wake their owning process. revents
// is left untouched (POLLNONE, per pollEntry_t's zero value) so Poll's
// own wake handler reports a 0 count, signalling a timeout rather than
// a ready fd to its caller.
func (m *Manager_t) TickDown(ms int) {
	m.Lock()
	var towake []defs.Pid_t
	for _, e := range m.polls {
		if e.remainMs <= 0 {
			continue
		}
		e.remainMs -= ms
		if e.remainMs <= 0 {
			towake = append(towake, e.pid)
		}
	}
	m.Unlock()

	for _, pid := range towake {
		if p, ok := m.pt.Get(pid); ok {
			wake(p)
		}
	}
}

// PurgeProcess removes every poll/wait/happened entry referring to pid,
// called before the process is actually destroyed.
func (m *Manager_t) PurgeProcess(pid defs.Pid_t) {
	m.Lock()
	defer m.Unlock()

	kept := m.polls[:0]
	for _, e := range m.polls {
		if e.pid != pid {
			kept = append(kept, e)
		}
	}
	m.polls = kept

	kw := m.waits[:0]
	for _, w := range m.waits {
		if w.pid != pid {
			kw = append(kw, w)
		}
	}
	m.waits = kw

	kh := m.happened[:0]
	for _, h := range m.happened {
		if h.pid != pid {
			kh = append(kh, h)
		}
	}
	m.happened = kh
}
