package accnt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickIncrements(t *testing.T) {
	var a Accnt_t
	a.Tick()
	a.Tick()
	require.EqualValues(t, 2, a.Ticks)
}

func TestSyscallAccumulatesPerIndex(t *testing.T) {
	var a Accnt_t
	a.Syscall(1)
	a.Syscall(1)
	a.Syscall(2)
	require.EqualValues(t, 2, a.Syscalls[1])
	require.EqualValues(t, 1, a.Syscalls[2])
}

func TestUtaddAndSystadd(t *testing.T) {
	var a Accnt_t
	a.Utadd(100)
	a.Systadd(200)
	require.EqualValues(t, 100, a.Userns)
	require.EqualValues(t, 200, a.Sysns)
}

func TestAddMergesAnotherRecord(t *testing.T) {
	var a, b Accnt_t
	a.Utadd(10)
	a.Systadd(20)
	b.Utadd(5)
	b.Systadd(7)

	a.Add(&b)
	require.EqualValues(t, 15, a.Userns)
	require.EqualValues(t, 27, a.Sysns)
}

func TestToRusageEncodesSecondsAndMicros(t *testing.T) {
	var a Accnt_t
	a.Utadd(int(1*1e9 + 500000*1000)) // 1.5s
	ru := a.To_rusage()
	require.Len(t, ru, 32)

	secs := int64(ru[0]) | int64(ru[1])<<8 | int64(ru[2])<<16 | int64(ru[3])<<24
	require.EqualValues(t, 1, secs)
}

func TestFetchIsConsistentWithToRusage(t *testing.T) {
	var a Accnt_t
	a.Utadd(1000)
	require.Equal(t, a.To_rusage(), a.Fetch())
}
