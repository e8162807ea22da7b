package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defs"
)

func TestUserwritenThenUserreadnRoundtrips(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x1000)
	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))

	require.Zero(t, pdt.Userwriten(va, 4, 0x1234))
	v, err := pdt.Userreadn(va, 4)
	require.Zero(t, err)
	require.Equal(t, 0x1234, v)
}

func TestUserstrStopsAtNul(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x1000)
	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))

	pg, ok := pdt.Bytes(va)
	require.True(t, ok)
	copy(pg, "hello\x00garbage")

	s, err := pdt.Userstr(va, 64)
	require.Zero(t, err)
	require.Equal(t, "hello", s.String())
}

func TestUserstrFailsWhenTooLong(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x1000)
	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))

	pg, ok := pdt.Bytes(va)
	require.True(t, ok)
	for i := range pg {
		pg[i] = 'x'
	}

	_, err := pdt.Userstr(va, 4)
	require.Equal(t, -defs.ENAMETOOLONG, err)
}

func TestK2userThenUser2kRoundtrips(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x1000)
	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))

	src := []byte("round trip payload")
	require.Zero(t, pdt.K2user(src, va))

	dst := make([]byte, len(src))
	require.Zero(t, pdt.User2k(dst, va))
	require.Equal(t, src, dst)
}

func TestUserreadnFaultsOnUnmappedAddress(t *testing.T) {
	setupMem(t)
	pdt := New()
	_, err := pdt.Userreadn(Va_t(0x9000), 4)
	require.Equal(t, -defs.EFAULT, err)
}
