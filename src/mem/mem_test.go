package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitReservesSmallAndLargeFrames(t *testing.T) {
	phys := Init([]Region_t{{Start: 0, Len: 16 * 1024 * 1024}})
	small, large := phys.Nfree()
	require.Greater(t, small, 0)
	require.Equal(t, 1, large)
}

func TestAllocateSmallFrameIsZeroed(t *testing.T) {
	phys := Init([]Region_t{{Start: 0, Len: 8 * 1024 * 1024}})
	p, ok := phys.Allocate(false)
	require.True(t, ok)

	pg := phys.Dmap(p)
	for _, b := range pg {
		require.Zero(t, b)
	}
}

func TestAllocateExhaustsSmallFreeList(t *testing.T) {
	phys := Init([]Region_t{{Start: 0, Len: uintptr(2 * PGSIZE)}})
	small, _ := phys.Nfree()

	for i := 0; i < small; i++ {
		_, ok := phys.Allocate(false)
		require.True(t, ok)
	}
	_, ok := phys.Allocate(false)
	require.False(t, ok)
}

func TestFreeReturnsFrameToPool(t *testing.T) {
	phys := Init([]Region_t{{Start: 0, Len: 8 * 1024 * 1024}})
	p, ok := phys.Allocate(false)
	require.True(t, ok)
	before, _ := phys.Nfree()

	phys.Free(p, false)
	after, _ := phys.Nfree()
	require.Equal(t, before+1, after)
}

func TestDmapWritesAreVisibleThroughSameFrame(t *testing.T) {
	phys := Init([]Region_t{{Start: 0, Len: 8 * 1024 * 1024}})
	p, ok := phys.Allocate(false)
	require.True(t, ok)

	pg1 := phys.Dmap(p)
	pg1[0] = 0x42
	pg2 := phys.Dmap(p)
	require.Equal(t, uint8(0x42), pg2[0])
}

func TestDmapPanicsOnUnalignedAddress(t *testing.T) {
	phys := Init([]Region_t{{Start: 0, Len: 4 * 1024 * 1024}})
	require.Panics(t, func() { phys.Dmap(1) })
}
