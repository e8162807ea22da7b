// Package kheap implements the kernel heap: a first-fit allocator that
// grows itself page-by-page through a vm.PDT_t, exactly the "heap sits
// inside the kernel portion of every address space" arrangement spec
// section 4.3 describes. It is grounded on the teacher's own allocator
// shape for mem.Physmem_t (a locked singleton with an Init/Allocate/Free
// surface) -- biscuit itself never wrote this package, since it ran atop
// a patched Go runtime with its own garbage-collected heap, so the walk-
// the-block-list allocator below is new code written in that package's
// idiom rather than an adaptation of teacher source.
package kheap

import (
	"sync"

	"oommsg"
	"vm"
)

// Base is the fixed kernel-virtual address the heap starts at. It lives
// well above KERNBASE so it never collides with the kernel's own
// identity-mapped text/data region.
const Base vm.Va_t = vm.KERNBASE + 0x10000000

// headerSize is the size in bytes of one block header: magic(4) |
// size(4) | free(1) + 7 bytes pad, rounded up to the heap's own
// minimum alignment. Every block, free or allocated, starts with one.
const headerSize = 16

// defaultAlign is the alignment malloc guarantees when the caller asks
// for none -- the spec's heap-block invariant requires headers aligned
// to a power of two of at least 16.
const defaultAlign = 16

const liveMagic uint32 = 0xcafebabe

// Heap_t is the kernel heap. One instance backs the whole kernel; it
// grows by mapping fresh pages through pdt as malloc demands more room.
type Heap_t struct {
	sync.Mutex

	pdt  *vm.PDT_t
	base vm.Va_t
	end  vm.Va_t // first unmapped address; grows by whole pages
	tail vm.Va_t // va of the current trailing sentinel; where the next newBlock grows from
}

// Kheap is the kernel-wide heap singleton, installed by Init.
var Kheap *Heap_t

// Init creates the heap at Base and wires it to pdt, which must be (or
// become) the kernel's address space -- every process's PDT shares this
// same kernel half, so allocations made before any process exists are
// visible to all of them.
func Init(pdt *vm.PDT_t) *Heap_t {
	Kheap = &Heap_t{pdt: pdt, base: Base, end: Base, tail: Base}
	return Kheap
}

// blockHeader is the decoded view of one block header at va.
type blockHeader struct {
	va    vm.Va_t
	magic uint32
	size  uint32 // payload size, not including the header
	free  bool
}

func (h *Heap_t) readHeader(va vm.Va_t) blockHeader {
	b := h.read(va, headerSize)
	return blockHeader{
		va:    va,
		magic: leUint32(b[0:4]),
		size:  leUint32(b[4:8]),
		free:  b[8] != 0,
	}
}

func (h *Heap_t) writeHeader(bh blockHeader) {
	var b [headerSize]byte
	putLeUint32(b[0:4], bh.magic)
	putLeUint32(b[4:8], bh.size)
	if bh.free {
		b[8] = 1
	}
	h.write(bh.va, b[:])
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// read copies n bytes starting at va out of the heap's mapped pages,
// looping across page boundaries one vm.PDT_t.Bytes call at a time
// since nothing below guarantees two consecutive heap pages share a
// contiguous backing array.
func (h *Heap_t) read(va vm.Va_t, n int) []byte {
	out := make([]byte, n)
	got := 0
	for got < n {
		page, ok := h.pdt.Bytes(va + vm.Va_t(got))
		if !ok {
			panic("kheap: read of unmapped heap address")
		}
		c := copy(out[got:], page)
		got += c
	}
	return out
}

func (h *Heap_t) write(va vm.Va_t, data []byte) {
	put := 0
	for put < len(data) {
		page, ok := h.pdt.Bytes(va + vm.Va_t(put))
		if !ok {
			panic("kheap: write of unmapped heap address")
		}
		c := copy(page, data[put:])
		put += c
	}
}

func roundup(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

// growTo extends the heap with whole pages until h.end reaches target,
// wiring each new page into h.pdt. A failure here is not recoverable:
// the kernel heap growing is load-bearing for everything above it, so
// -- per spec section 4.3 -- it panics rather than propagating an error.
func (h *Heap_t) growTo(target vm.Va_t) {
	for h.end < target {
		if !h.pdt.Allocate(h.end, vm.PTE_P|vm.PTE_W, nil, nil) {
			oommsg.Warn("kheap.growTo", int(target-h.end))
			panic("kheap: out of memory extending the kernel heap")
		}
		h.end += vm.Va_t(vm.PGSIZE)
	}
}

// newBlock grows the heap as needed and installs a new free block at
// h.tail -- the address of the heap's current trailing sentinel --
// rather than at h.end. Every prior block's next-block address is
// computed as va+headerSize+size, which lands exactly on the old
// sentinel; starting the new block there instead of at h.end (which
// page-rounding can leave strictly past the sentinel) keeps that chain
// unbroken so first-fit scans reach every block ever grown, not just
// the first one. align bytes of slack beyond the requested size are
// reserved so the caller can still align the payload afterward without
// running short.
func (h *Heap_t) newBlock(sz, align uint32) blockHeader {
	start := h.tail
	slack := sz + align
	need := int(headerSize+slack) + headerSize // block + sentinel header
	h.growTo(start + vm.Va_t(need))

	bh := blockHeader{va: start, magic: liveMagic, size: slack, free: true}
	h.writeHeader(bh)
	sentinel := blockHeader{va: start + vm.Va_t(headerSize+slack), magic: liveMagic, size: 0, free: true}
	h.writeHeader(sentinel)
	h.tail = sentinel.va
	return bh
}

// Malloc finds or creates a block of at least size bytes and returns
// its payload address. magic, when nonzero, is stamped over the
// block's own header magic for leak-tracking callers; it has no effect
// on allocator behavior.
func (h *Heap_t) Malloc(size uint32, align uint32, magic uint32) vm.Va_t {
	h.Lock()
	defer h.Unlock()

	if align == 0 {
		align = defaultAlign
	}
	size = roundup(size, defaultAlign)

	cur := h.base
	for cur < h.end {
		bh := h.readHeader(cur)
		if bh.magic != liveMagic {
			panic("kheap: corrupt block header")
		}
		if bh.free && bh.size == 0 {
			break // sentinel
		}
		if bh.free && uint32(bh.size) >= size {
			payload := bh.va + vm.Va_t(headerSize)
			if off := uintptr(payload) % uintptr(align); off != 0 {
				pad := uint32(uintptr(align) - off)
				if pad >= headerSize+defaultAlign {
					h.splitLeadingPad(&bh, pad)
					payload = bh.va + vm.Va_t(headerSize)
				} else {
					bh.va += vm.Va_t(pad)
					bh.size -= pad
					payload = bh.va + vm.Va_t(headerSize)
				}
			}
			h.carve(&bh, size)
			h.stamp(bh, magic)
			return payload
		}
		cur = bh.va + vm.Va_t(headerSize) + vm.Va_t(bh.size)
	}

	bh := h.newBlock(size, align)
	if off := uintptr(bh.va+vm.Va_t(headerSize)) % uintptr(align); off != 0 {
		pad := uint32(uintptr(align) - off)
		if pad >= headerSize+defaultAlign {
			h.splitLeadingPad(&bh, pad)
		} else {
			bh.va += vm.Va_t(pad)
			bh.size -= pad
		}
	}
	h.carve(&bh, size)
	h.stamp(bh, magic)
	return bh.va + vm.Va_t(headerSize)
}

// splitLeadingPad shifts bh forward by pad bytes, leaving a new free
// block of size pad-headerSize behind to cover the gap.
func (h *Heap_t) splitLeadingPad(bh *blockHeader, pad uint32) {
	lead := blockHeader{va: bh.va, magic: liveMagic, size: pad - headerSize, free: true}
	h.writeHeader(lead)
	bh.va += vm.Va_t(pad)
	bh.size -= pad
}

// carve marks bh in-use for size bytes, splitting the remainder into a
// new free block when there is room for one.
func (h *Heap_t) carve(bh *blockHeader, size uint32) {
	remain := bh.size - size
	if remain >= headerSize+defaultAlign {
		rest := blockHeader{
			va:    bh.va + vm.Va_t(headerSize+size),
			magic: liveMagic,
			size:  remain - headerSize,
			free:  true,
		}
		h.writeHeader(rest)
		bh.size = size
	}
	bh.free = false
}

func (h *Heap_t) stamp(bh blockHeader, magic uint32) {
	if magic != 0 {
		bh.magic = magic
	}
	h.writeHeader(bh)
}

// header returns the header of the block whose payload is at p.
func (h *Heap_t) headerOf(p vm.Va_t) blockHeader {
	return h.readHeader(p - vm.Va_t(headerSize))
}

// Free marks p's block free and merges it with the immediately
// following block if that one is also free. Freeing anything but a
// live Malloc return value is undefined, matching the header-based
// allocators this package is modeled on.
func (h *Heap_t) Free(p vm.Va_t) {
	if p == 0 {
		return
	}
	h.Lock()
	defer h.Unlock()

	bh := h.headerOf(p)
	bh.free = true
	h.writeHeader(bh)

	next := bh.va + vm.Va_t(headerSize) + vm.Va_t(bh.size)
	if next >= h.end {
		return
	}
	nb := h.readHeader(next)
	if nb.free && nb.size > 0 {
		bh.size += headerSize + nb.size
		h.writeHeader(bh)
	}
}

// Calloc is Malloc followed by zeroing the payload.
func (h *Heap_t) Calloc(n, size uint32, align uint32, magic uint32) vm.Va_t {
	total := n * size
	p := h.Malloc(total, align, magic)
	zero := make([]byte, total)
	h.write(p, zero)
	return p
}

// Realloc resizes the block at p to newSize, preserving contents up to
// min(old, new). It reuses the block in place when the existing
// payload is already large enough; otherwise it allocates fresh and
// copies.
func (h *Heap_t) Realloc(p vm.Va_t, newSize uint32) vm.Va_t {
	if p == 0 {
		return h.Malloc(newSize, 0, 0)
	}
	h.Lock()
	bh := h.headerOf(p)
	oldSize := bh.size
	h.Unlock()

	if newSize <= oldSize {
		return p
	}

	np := h.Malloc(newSize, 0, 0)
	old := h.read(p, int(oldSize))
	h.write(np, old)
	h.Free(p)
	return np
}

// Stats reports the number of live (non-free) blocks and total bytes
// of heap address space currently mapped, for tests and diagnostics.
func (h *Heap_t) Stats() (liveBlocks int, mappedBytes uintptr) {
	h.Lock()
	defer h.Unlock()
	cur := h.base
	for cur < h.end {
		bh := h.readHeader(cur)
		if bh.free && bh.size == 0 {
			break
		}
		if !bh.free {
			liveBlocks++
		}
		cur = bh.va + vm.Va_t(headerSize) + vm.Va_t(bh.size)
	}
	return liveBlocks, uintptr(h.end - h.base)
}
