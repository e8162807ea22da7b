package kheap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mem"
	"vm"
)

func freshHeap(t *testing.T) *Heap_t {
	t.Helper()
	mem.Init([]mem.Region_t{{Start: 0, Len: 64 * 1024 * 1024}})
	pdt := vm.New()
	pdt.Load()
	return Init(pdt)
}

func TestMallocBasic(t *testing.T) {
	h := freshHeap(t)
	p := h.Malloc(64, 0, 0)
	require.NotZero(t, p)
	require.Zero(t, uintptr(p)%defaultAlign)
}

func TestMallocAlignment(t *testing.T) {
	h := freshHeap(t)
	p := h.Malloc(32, 4096, 0)
	require.Zero(t, uintptr(p)%4096)
}

func TestFreedBlockIsReused(t *testing.T) {
	h := freshHeap(t)
	a := h.Malloc(64, 0, 0)
	b := h.Malloc(64, 0, 0)
	_ = b
	h.Free(a)
	before := h.headerOf(a)
	require.True(t, before.free)

	c := h.Malloc(64, 0, 0)
	require.Equal(t, a, c, "freed block should be reused by a same-size request")
}

func TestCallocZeroes(t *testing.T) {
	h := freshHeap(t)
	p := h.Calloc(8, 8, 0, 0)
	b := h.read(p, 64)
	for _, v := range b {
		require.Equal(t, byte(0), v)
	}
}

func TestReallocPreservesContents(t *testing.T) {
	h := freshHeap(t)
	p := h.Malloc(16, 0, 0)
	h.write(p, []byte("0123456789abcdef"))

	np := h.Realloc(p, 64)
	got := h.read(np, 16)
	require.Equal(t, []byte("0123456789abcdef"), got)
}

func TestHeapGrowsAcrossPageBoundary(t *testing.T) {
	h := freshHeap(t)
	var last vm.Va_t
	for i := 0; i < 8; i++ {
		last = h.Malloc(4096, 4096, 0)
		require.Zero(t, uintptr(last)%4096)
		_, ok := h.pdt.Translate(last)
		require.True(t, ok)
	}
}

func TestStats(t *testing.T) {
	h := freshHeap(t)
	h.Malloc(32, 0, 0)
	h.Malloc(32, 0, 0)
	live, mapped := h.Stats()
	require.Equal(t, 2, live)
	require.True(t, mapped > 0)
}
