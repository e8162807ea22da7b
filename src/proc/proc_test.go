package proc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defs"
	"mem"
)

func freshMem(t *testing.T) {
	t.Helper()
	mem.Init([]mem.Region_t{{Start: 0, Len: 32 * 1024 * 1024}})
}

func TestProcTablePidAllocation(t *testing.T) {
	pt := MkProcTable(100)
	init := New(0, 0)
	pt.AddInit(init)
	require.Equal(t, InitPid, init.Pid)

	p1 := New(0, InitPid)
	pid1 := pt.Add(p1)
	require.NotEqual(t, InitPid, pid1)

	got, ok := pt.Get(pid1)
	require.True(t, ok)
	require.Equal(t, p1, got)
}

func TestSwapInRequiresRunnable(t *testing.T) {
	freshMem(t)
	pt := MkProcTable(16)
	p := New(0, 0)
	p.Status = defs.PROC_ZOMBIE
	pid := pt.Add(p)
	require.False(t, pt.SwapIn(pid))

	p.Status = defs.PROC_RUNNABLE
	require.True(t, pt.SwapIn(pid))
	active, ok := pt.Active()
	require.True(t, ok)
	require.Equal(t, pid, active)
}

func TestSwapOutPreservesSleeping(t *testing.T) {
	freshMem(t)
	pt := MkProcTable(16)
	p := New(0, 0)
	pid := pt.Add(p)
	require.True(t, pt.SwapIn(pid))

	p.Lock()
	p.Status = defs.PROC_SLEEPING
	p.Unlock()

	pt.SwapOut(pid, Regs_t{Eax: 1}, Trapframe_t{Eip: 2})
	require.Equal(t, defs.PROC_SLEEPING, p.Status)
	require.Equal(t, uint32(1), p.Regs.Eax)
}

func TestForkDuplicateCopiesRegs(t *testing.T) {
	freshMem(t)
	parent := New(InitPid, 0)
	parent.Regs = Regs_t{Eax: 42}

	child, err := ForkDuplicate(parent, 2)
	require.Zero(t, err)
	require.Equal(t, uint32(42), child.Regs.Eax)
	require.Equal(t, parent.Pid, child.Ppid)
	require.Empty(t, child.Children)
}
