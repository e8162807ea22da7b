package vm

import "mem"

// userPdeCount returns the number of PDEs covering [0, end).
func userPdeCount(end Va_t) int {
	n := pdeIndex(end - 1)
	if end == 0 {
		return 0
	}
	return n + 1
}

// CleanUserSpace releases every user mapping below end, freeing the
// underlying physical frames. It is the implementation behind a process
// exiting or execve replacing its address space.
func (pdt *PDT_t) CleanUserSpace(end Va_t) {
	pdt.FreeUserSpace(end, true)
}

// FreeUserSpace tears down every present mapping whose PDE index is below
// userPdeCount(end). releasePhysical controls whether the backing frames
// are returned to the page-frame allocator.
func (pdt *PDT_t) FreeUserSpace(end Va_t, releasePhysical bool) {
	n := userPdeCount(end)
	for i := 0; i < n; i++ {
		pde := &pdt.entries[i]
		switch pde.kind {
		case pdeAbsent:
			continue
		case pdeLarge:
			if releasePhysical {
				mem.Physmem.Free(pde.frame, true)
			}
			*pde = pde_t{}
		case pdeSmall:
			for j := range pde.pt.entries {
				pte := &pde.pt.entries[j]
				if !pte.present {
					continue
				}
				if releasePhysical {
					mem.Physmem.Free(pte.frame, false)
				}
				*pte = pte_t{}
			}
			mem.Physmem.Free(pde.pt.frame, false)
			*pde = pde_t{}
		}
	}
}

// DuplicateUserSpace builds a new PDT whose user half (below end) is an
// independent copy of this one: every mapped page gets its own freshly
// allocated physical frame with identical contents, copied through the
// physical direct map (mem.Physmem.Dmap) -- the same mechanism a
// temporary kernel-space staging page provides on hardware without one.
// It is the core of fork's address-space duplication.
func (pdt *PDT_t) DuplicateUserSpace(end Va_t) (*PDT_t, bool) {
	child := New()
	n := userPdeCount(end)
	for i := 0; i < n; i++ {
		pde := &pdt.entries[i]
		switch pde.kind {
		case pdeAbsent:
			continue
		case pdeLarge:
			nf, ok := mem.Physmem.Allocate(true)
			if !ok {
				child.FreeUserSpace(end, true)
				return nil, false
			}
			copy(mem.Physmem.DmapLarge(nf), mem.Physmem.DmapLarge(pde.frame))
			child.entries[i] = pde_t{kind: pdeLarge, frame: nf, flags: pde.flags}
		case pdeSmall:
			for j := range pde.pt.entries {
				pte := &pde.pt.entries[j]
				if !pte.present {
					continue
				}
				v := Va_t(i)<<LGPGSHIFT | Va_t(j)<<PGSHIFT
				nf, ok := mem.Physmem.Allocate(false)
				if !ok {
					child.FreeUserSpace(end, true)
					return nil, false
				}
				dst := mem.Physmem.Dmap(nf)
				src := mem.Physmem.Dmap(pte.frame)
				*dst = *src
				if !child.Allocate(v, pte.flags, &nf, nil) {
					mem.Physmem.Free(nf, false)
					child.FreeUserSpace(end, true)
					return nil, false
				}
			}
		}
	}
	return child, true
}

// UpdateUserSpace replaces this PDT's user half below end with a shallow
// copy of other's mappings: the same physical frames and page tables are
// aliased rather than duplicated. It is used when a process's address
// space must be momentarily synchronized with another without paying for
// a full duplication (e.g. restoring the old mappings after a failed
// execve).
func (pdt *PDT_t) UpdateUserSpace(other *PDT_t, end Va_t) {
	n := userPdeCount(end)
	for i := 0; i < n; i++ {
		pdt.entries[i] = other.entries[i]
	}
}

// Clear releases a PDT built purely for scratch/staging purposes, freeing
// every mapping regardless of the kernel/user split.
func (pdt *PDT_t) Clear() {
	pdt.FreeUserSpace(Va_t(NPDENTRY)<<LGPGSHIFT, true)
}
