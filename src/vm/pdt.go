// Package vm implements the two-level x86 page-translation structure: a
// page-descriptor table (PDT) of 1024 entries, each either absent, a 4 MiB
// large mapping, or a pointer to a 1024-entry page table (PT) of 4 KiB
// mappings. It also implements the kernel's single direct map: physical
// frames are always byte-addressable through mem.Physmem.Dmap, which lets
// the PDT bootstrap new page tables without the recursive trick a kernel
// without a direct map would need (see the design note on newPT below).
package vm

import (
	"mem"
	"util"
)

const (
	PGSIZE    = mem.PGSIZE
	NPDENTRY  = 1024
	NPTENTRY  = 1024
	LGPGSIZE  = mem.LGPGSIZE
	PGSHIFT   = mem.PGSHIFT
	LGPGSHIFT = mem.LGPGSHIFT

	// KERNBASE is the kernel/user split: virtual addresses below KERNBASE
	// are user space, addresses at or above it are kernel space. This is
	// also "kernel_virtual_base" in the syscall argument-range check.
	KERNBASE Va_t = 0xc0000000
)

// Va_t is a virtual address.
type Va_t uintptr

// PteFlags is the low-12-bits flag set carried by both PDEs and PTEs.
type PteFlags uint32

const (
	PTE_P  PteFlags = 1 << 0 /// present
	PTE_W  PteFlags = 1 << 1 /// writable
	PTE_U  PteFlags = 1 << 2 /// user-accessible
	pteAll PteFlags = 0xfff
)

func pdeIndex(v Va_t) int { return int((uintptr(v) >> LGPGSHIFT) & (NPDENTRY - 1)) }
func pteIndex(v Va_t) int { return int((uintptr(v) >> PGSHIFT) & (NPTENTRY - 1)) }
func pageOff(v Va_t) uintptr {
	return uintptr(v) & uintptr(mem.PGOFFSET)
}
func lgPageOff(v Va_t) uintptr {
	return uintptr(v) & uintptr(mem.LGPGMASK)
}

// pte_t is one page-table entry: a 4 KiB mapping.
type pte_t struct {
	present bool
	frame   mem.Pa_t
	flags   PteFlags
}

// PT_t is a page table: 1024 4 KiB mappings. It owns one physical frame
// for bookkeeping purposes (so the page-frame allocator's frame count
// correctly reflects page-table overhead) even though, in this simulated
// kernel, the table's logical contents live in the typed entries slice
// rather than being bit-packed into that frame's bytes.
type PT_t struct {
	entries [NPTENTRY]pte_t
	frame   mem.Pa_t
	npresent int
}

// pdeKind enumerates what a PDT entry currently holds.
type pdeKind int

const (
	pdeAbsent pdeKind = iota
	pdeSmall          // points at a PT_t
	pdeLarge          // maps a 4 MiB frame directly
)

// pde_t is one page-descriptor-table entry.
type pde_t struct {
	kind  pdeKind
	frame mem.Pa_t // large: the mapped 4 MiB frame. small: the PT's own frame.
	pt    *PT_t    // side-pointer to the child PT, non-nil iff kind==pdeSmall
	flags PteFlags
}

// PDT_t is a full address space: the two-level mapping from virtual to
// physical addresses used by exactly one process (its user half) or
// shared by all of them (the kernel half).
type PDT_t struct {
	entries [NPDENTRY]pde_t
}

// New returns an empty PDT_t with no mappings at all.
func New() *PDT_t {
	return &PDT_t{}
}

// Translate walks the PDE then the PTE for v and returns the physical
// address it maps to, or ok=false if any level is absent. It never
// allocates and never faults.
func (pdt *PDT_t) Translate(v Va_t) (mem.Pa_t, bool) {
	pde := &pdt.entries[pdeIndex(v)]
	switch pde.kind {
	case pdeAbsent:
		return 0, false
	case pdeLarge:
		return pde.frame + mem.Pa_t(lgPageOff(v)), true
	case pdeSmall:
		pte := &pde.pt.entries[pteIndex(v)]
		if !pte.present {
			return 0, false
		}
		return pte.frame + mem.Pa_t(pageOff(v)), true
	default:
		panic("bad pde kind")
	}
}

// newPT allocates and wires a fresh page table into pdeIdx.
//
// A kernel without a direct map must map the new table's frame at a
// reserved "temporary PT slot" virtual address before it can zero it or
// link it in, because until it is linked into some PDE there is no other
// way to address its bytes -- and that bootstrap must not recurse if the
// kernel heap's own attempt to grow itself is what triggered this call in
// the first place. Here, mem.Physmem.Dmap already gives every physical
// frame a byte address regardless of the page tables, so the recursion
// hazard does not exist; recursive is retained purely as an assertion that
// a caller already inside the heap's own page-table bootstrap path does
// not re-enter this function for the same PDE.
func (pdt *PDT_t) newPT(pdeIdx int, recursive *bool) *PT_t {
	if recursive != nil && *recursive {
		panic("vm: reentrant page-table bootstrap for the same PDE")
	}
	if recursive != nil {
		*recursive = true
		defer func() { *recursive = false }()
	}
	frame, ok := mem.Physmem.Allocate(false)
	if !ok {
		panic("vm: out of physical memory while allocating a page table")
	}
	pt := &PT_t{frame: frame}
	pdt.entries[pdeIdx] = pde_t{kind: pdeSmall, frame: frame, pt: pt, flags: PTE_P | PTE_W}
	return pt
}

// Allocate maps virtual page v with the given flags. If the PT covering v
// does not exist yet it is created via newPT. It fails if v is already
// mapped, if flags carries bits outside the low 12, or if PTE_P is not
// set.
func (pdt *PDT_t) Allocate(v Va_t, flags PteFlags, physHint *mem.Pa_t, recursive *bool) bool {
	if flags&^pteAll != 0 {
		return false
	}
	if flags&PTE_P == 0 {
		return false
	}
	if uintptr(v)%uintptr(PGSIZE) != 0 {
		return false
	}
	if _, ok := pdt.Translate(v); ok {
		return false
	}
	pdeIdx := pdeIndex(v)
	pde := &pdt.entries[pdeIdx]
	if pde.kind == pdeLarge {
		return false
	}
	if pde.kind == pdeAbsent {
		pdt.newPT(pdeIdx, recursive)
		pde = &pdt.entries[pdeIdx]
	}
	var frame mem.Pa_t
	if physHint != nil {
		frame = *physHint
	} else {
		f, ok := mem.Physmem.Allocate(false)
		if !ok {
			return false
		}
		frame = f
	}
	pte := &pde.pt.entries[pteIndex(v)]
	*pte = pte_t{present: true, frame: frame, flags: flags}
	pde.pt.npresent++
	return true
}

// Free tears down the mapping at v. If releasePhysical is true the
// underlying frame is returned to the page-frame allocator. If the PT
// backing v becomes empty as a result, the PT itself is freed and its PDE
// cleared. Freeing an address with no small mapping is a no-op.
func (pdt *PDT_t) Free(v Va_t, releasePhysical bool) {
	pde := &pdt.entries[pdeIndex(v)]
	if pde.kind != pdeSmall {
		return
	}
	pte := &pde.pt.entries[pteIndex(v)]
	if !pte.present {
		return
	}
	if releasePhysical {
		mem.Physmem.Free(pte.frame, false)
	}
	*pte = pte_t{}
	pde.pt.npresent--
	tlbInvalidate(v)
	if pde.pt.npresent == 0 {
		mem.Physmem.Free(pde.pt.frame, false)
		*pde = pde_t{}
	}
}

// tlbInvalidate models invalidating one TLB entry. There is no real TLB
// in this simulated kernel; it exists so that callers read the same as a
// hardware port would (and so a future real backend has an obvious seam).
func tlbInvalidate(Va_t) {}

// Load installs this PDT as the active address space. On real hardware
// this writes CR3 and implicitly flushes the entire TLB; here it just
// records which PDT is "current" for components (like the kernel heap)
// that operate against "whatever is loaded right now."
func (pdt *PDT_t) Load() {
	current = pdt
}

var current *PDT_t

// Current returns the PDT most recently installed with Load.
func Current() *PDT_t { return current }

// Bytes returns a byte slice covering the 4 KiB page containing v, or
// ok=false if v is unmapped. The slice is truncated to the page boundary;
// callers that need to operate across a page boundary must call Bytes
// again for the following page, exactly like the physical direct map.
func (pdt *PDT_t) Bytes(v Va_t) ([]byte, bool) {
	pa, ok := pdt.Translate(v)
	if !ok {
		return nil, false
	}
	frameBase := pa &^ mem.Pa_t(mem.PGOFFSET)
	off := uintptr(pa - frameBase)
	pg := mem.Physmem.Dmap(frameBase)
	return pg[off:], true
}

// Map reserves a contiguous run of kernel virtual pages covering
// [phys, phys+size) and maps it read/write. The search starts at hint and
// wraps once through the kernel half of the address space. Sub-page
// offsets in phys are preserved in the returned address.
func (pdt *PDT_t) Map(phys mem.Pa_t, size uintptr, hint Va_t) (Va_t, bool) {
	if hint < KERNBASE {
		hint = KERNBASE
	}
	physBase := phys &^ mem.Pa_t(mem.PGOFFSET)
	suboff := uintptr(phys - physBase)
	npg := (suboff + size + uintptr(PGSIZE) - 1) / uintptr(PGSIZE)

	try := func(start Va_t) (Va_t, bool) {
		for i := uintptr(0); i < npg; i++ {
			if _, ok := pdt.Translate(start + Va_t(i)*Va_t(PGSIZE)); ok {
				return 0, false
			}
		}
		for i := uintptr(0); i < npg; i++ {
			f := physBase + mem.Pa_t(i)*mem.Pa_t(PGSIZE)
			if !pdt.Allocate(start+Va_t(i)*Va_t(PGSIZE), PTE_P|PTE_W, &f, nil) {
				for j := uintptr(0); j < i; j++ {
					pdt.Free(start+Va_t(j)*Va_t(PGSIZE), false)
				}
				return 0, false
			}
		}
		return start + Va_t(suboff), true
	}

	start := util.Rounddown(uintptr(hint), uintptr(PGSIZE))
	end := util.Rounddown(uintptr(^Va_t(0)), uintptr(PGSIZE))
	for v := start; v+npg*uintptr(PGSIZE) <= end+uintptr(PGSIZE); v += uintptr(PGSIZE) {
		if r, ok := try(Va_t(v)); ok {
			return r, true
		}
	}
	for v := uintptr(KERNBASE); v < start; v += uintptr(PGSIZE) {
		if r, ok := try(Va_t(v)); ok {
			return r, true
		}
	}
	return 0, false
}

// Unmap is the inverse of Map: it releases the virtual reservation
// covering [v, v+size) without freeing the underlying physical memory.
func (pdt *PDT_t) Unmap(v Va_t, size uintptr) {
	start := Va_t(util.Rounddown(uintptr(v), uintptr(PGSIZE)))
	end := Va_t(util.Roundup(uintptr(v)+size, uintptr(PGSIZE)))
	for p := start; p < end; p += Va_t(PGSIZE) {
		pdt.Free(p, false)
	}
}
