package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"defs"
	"fd"
	"fdops"
	"mem"
	"proc"
)

type fakeFops struct {
	ready defs.Ready_t
}

func (f *fakeFops) Close() defs.Err_t  { return 0 }
func (f *fakeFops) Reopen() defs.Err_t { return 0 }
func (f *fakeFops) Read(dst fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (f *fakeFops) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, 0 }
func (f *fakeFops) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	return f.ready & events, 0
}

func setup(t *testing.T) (*Manager_t, *proc.ProcTable_t, *proc.Process_t) {
	t.Helper()
	mem.Init([]mem.Region_t{{Start: 0, Len: 8 * 1024 * 1024}})
	pt := proc.MkProcTable(16)
	p := proc.New(0, 0)
	pt.AddInit(p)
	return New(pt), pt, p
}

func TestPollImmediatelyReady(t *testing.T) {
	m, _, p := setup(t)
	ff := &fakeFops{ready: defs.POLLIN}
	key := fd.Gfiles.OpenFile(&fd.Fd_t{Fops: ff})
	lfd := p.AddFd(key, fd.FD_READ)

	reqs := []defs.Pollfd_t{{Fd: int32(lfd), Events: defs.POLLIN}}
	n, err := m.Poll(p, reqs, 0)
	require.Zero(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, defs.POLLIN, reqs[0].Revents)
}

func TestPollBlocksThenWakesOnNotify(t *testing.T) {
	m, _, p := setup(t)
	ff := &fakeFops{ready: defs.POLLNONE}
	key := fd.Gfiles.OpenFile(&fd.Fd_t{Fops: ff})
	lfd := p.AddFd(key, fd.FD_READ)

	reqs := []defs.Pollfd_t{{Fd: int32(lfd), Events: defs.POLLIN}}
	done := make(chan int, 1)
	go func() {
		n, _ := m.Poll(p, reqs, 0)
		done <- n
	}()

	time.Sleep(10 * time.Millisecond)
	m.NotifyFile(key, defs.POLLIN)

	select {
	case n := <-done:
		require.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("poll never woke up")
	}
}

func TestPollTimesOutWhenNeverNotified(t *testing.T) {
	m, _, p := setup(t)
	ff := &fakeFops{ready: defs.POLLNONE}
	key := fd.Gfiles.OpenFile(&fd.Fd_t{Fops: ff})
	lfd := p.AddFd(key, fd.FD_READ)

	reqs := []defs.Pollfd_t{{Fd: int32(lfd), Events: defs.POLLIN}}
	done := make(chan int, 1)
	go func() {
		n, _ := m.Poll(p, reqs, 50)
		done <- n
	}()

	// Give Poll time to register before ticking, matching the timer
	// IRQ's real cadence of firing well after any syscall entry.
	time.Sleep(10 * time.Millisecond)
	m.TickDown(10)
	m.TickDown(10)
	m.TickDown(10)
	m.TickDown(10) // 40ms elapsed, 10ms remaining: still outstanding
	require.Len(t, m.polls, 1)
	m.TickDown(10) // crosses zero

	select {
	case n := <-done:
		require.Equal(t, 0, n)
		require.Equal(t, defs.POLLNONE, reqs[0].Revents)
	case <-time.After(time.Second):
		t.Fatal("poll never timed out")
	}
}

func TestWaitpidNoChildren(t *testing.T) {
	m, _, p := setup(t)
	_, err := m.Waitpid(p, -1, nil)
	require.Equal(t, -defs.ECHILD, err)
}

func TestWaitpidHappenedBeforeWait(t *testing.T) {
	m, pt, parent := setup(t)
	child := proc.New(0, parent.Pid)
	cpid := pt.Add(child)
	parent.Children = append(parent.Children, cpid)

	m.NotifyWait(cpid, 7)

	var status int
	got, err := m.Waitpid(parent, -1, &status)
	require.Zero(t, err)
	require.Equal(t, cpid, got)
	require.Equal(t, 7, status)
}

func TestWaitpidBlocksThenWakesOnExit(t *testing.T) {
	m, pt, parent := setup(t)
	child := proc.New(0, parent.Pid)
	cpid := pt.Add(child)
	parent.Children = append(parent.Children, cpid)

	var status int
	done := make(chan defs.Pid_t, 1)
	go func() {
		got, _ := m.Waitpid(parent, -1, &status)
		done <- got
	}()

	time.Sleep(10 * time.Millisecond)
	m.NotifyWait(cpid, 3)

	select {
	case got := <-done:
		require.Equal(t, cpid, got)
		require.Equal(t, 3, status)
	case <-time.After(time.Second):
		t.Fatal("waitpid never woke up")
	}
}

func TestPurgeProcessRemovesEntries(t *testing.T) {
	m, _, p := setup(t)
	m.polls = append(m.polls, &pollEntry_t{pid: p.Pid})
	m.happened = append(m.happened, happened_t{pid: p.Pid})
	m.PurgeProcess(p.Pid)
	require.Empty(t, m.polls)
	require.Empty(t, m.happened)
}
