package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mem"
)

func setupMem(t *testing.T) {
	t.Helper()
	mem.Init([]mem.Region_t{{Start: 0, Len: 16 * 1024 * 1024}})
}

func TestAllocateThenTranslateRoundtrips(t *testing.T) {
	setupMem(t)
	pdt := New()

	const va = Va_t(0x1000)
	ok := pdt.Allocate(va, PTE_P|PTE_W, nil, nil)
	require.True(t, ok)

	pa, ok := pdt.Translate(va)
	require.True(t, ok)
	require.Zero(t, uintptr(pa)%uintptr(PGSIZE))
}

func TestAllocateRejectsAlreadyMapped(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x2000)

	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))
	require.False(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))
}

func TestAllocateRejectsUnalignedAddress(t *testing.T) {
	setupMem(t)
	pdt := New()
	require.False(t, pdt.Allocate(Va_t(0x1001), PTE_P|PTE_W, nil, nil))
}

func TestAllocateRejectsMissingPresentBit(t *testing.T) {
	setupMem(t)
	pdt := New()
	require.False(t, pdt.Allocate(Va_t(0x3000), PTE_W, nil, nil))
}

func TestFreeUnmapsAndOptionallyReleasesFrame(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x4000)
	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))

	before, _ := mem.Physmem.Nfree()
	pdt.Free(va, true)
	after, _ := mem.Physmem.Nfree()
	// the data frame, plus the page table that mapping left empty
	require.Equal(t, before+2, after)

	_, ok := pdt.Translate(va)
	require.False(t, ok)
}

func TestFreeOnUnmappedAddressIsNoop(t *testing.T) {
	setupMem(t)
	pdt := New()
	require.NotPanics(t, func() { pdt.Free(Va_t(0x5000), true) })
}

func TestBytesReturnsPageSlice(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x6000)
	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))

	pg, ok := pdt.Bytes(va)
	require.True(t, ok)
	require.Len(t, pg, PGSIZE)
}

func TestBytesFailsOnUnmappedAddress(t *testing.T) {
	setupMem(t)
	pdt := New()
	_, ok := pdt.Bytes(Va_t(0x7000))
	require.False(t, ok)
}

func TestMapThenUnmapRoundtrips(t *testing.T) {
	setupMem(t)
	pdt := New()

	frame, ok := mem.Physmem.Allocate(false)
	require.True(t, ok)

	va, ok := pdt.Map(frame, uintptr(PGSIZE), KERNBASE)
	require.True(t, ok)

	_, ok = pdt.Translate(va)
	require.True(t, ok)

	pdt.Unmap(va, uintptr(PGSIZE))
	_, ok = pdt.Translate(va)
	require.False(t, ok)
}

func TestLoadAndCurrentRoundtrip(t *testing.T) {
	setupMem(t)
	pdt := New()
	pdt.Load()
	require.Same(t, pdt, Current())
}
