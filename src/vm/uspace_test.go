package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mem"
)

func TestFreeUserSpaceReleasesPresentMappings(t *testing.T) {
	setupMem(t)
	pdt := New()
	require.True(t, pdt.Allocate(Va_t(0x1000), PTE_P|PTE_W, nil, nil))
	require.True(t, pdt.Allocate(Va_t(0x2000), PTE_P|PTE_W, nil, nil))

	before, _ := mem.Physmem.Nfree()
	pdt.FreeUserSpace(Va_t(0x400000), true)
	after, _ := mem.Physmem.Nfree()
	require.Greater(t, after, before)

	_, ok := pdt.Translate(Va_t(0x1000))
	require.False(t, ok)
	_, ok = pdt.Translate(Va_t(0x2000))
	require.False(t, ok)
}

func TestDuplicateUserSpaceCopiesContents(t *testing.T) {
	setupMem(t)
	pdt := New()
	const va = Va_t(0x1000)
	require.True(t, pdt.Allocate(va, PTE_P|PTE_W, nil, nil))

	pg, ok := pdt.Bytes(va)
	require.True(t, ok)
	pg[0] = 0x55

	child, ok := pdt.DuplicateUserSpace(KERNBASE)
	require.True(t, ok)

	childPg, ok := child.Bytes(va)
	require.True(t, ok)
	require.Equal(t, uint8(0x55), childPg[0])

	// Mutating the child must not affect the parent -- independent frames.
	childPg[0] = 0xAA
	parentPg, _ := pdt.Bytes(va)
	require.Equal(t, uint8(0x55), parentPg[0])
}

func TestUpdateUserSpaceAliasesMappings(t *testing.T) {
	setupMem(t)
	src := New()
	const va = Va_t(0x1000)
	require.True(t, src.Allocate(va, PTE_P|PTE_W, nil, nil))

	dst := New()
	dst.UpdateUserSpace(src, KERNBASE)

	srcPa, ok := src.Translate(va)
	require.True(t, ok)
	dstPa, ok := dst.Translate(va)
	require.True(t, ok)
	require.Equal(t, srcPa, dstPa)
}

func TestClearFreesEverything(t *testing.T) {
	setupMem(t)
	pdt := New()
	require.True(t, pdt.Allocate(Va_t(0x1000), PTE_P|PTE_W, nil, nil))

	pdt.Clear()
	_, ok := pdt.Translate(Va_t(0x1000))
	require.False(t, ok)
}
