package vm

import "defs"

// Userbuf_t copies to and from a span of a process's user address space,
// page by page through its PDT. It satisfies fdops.Userio_i so that
// device drivers never need to know whether they are talking to a real
// user buffer or a kernel-internal one (see Fakeubuf_t below).
type Userbuf_t struct {
	pdt  *PDT_t
	base Va_t
	len  int
	off  int
}

// Mkuserbuf returns a Userbuf_t over [uva, uva+len) of the given address
// space.
func Mkuserbuf(pdt *PDT_t, uva Va_t, len int) *Userbuf_t {
	return &Userbuf_t{pdt: pdt, base: uva, len: len}
}

// Remain reports the number of bytes not yet transferred.
func (ub *Userbuf_t) Remain() int { return ub.len - ub.off }

// Totalsz reports the buffer's total length.
func (ub *Userbuf_t) Totalsz() int { return ub.len }

func (ub *Userbuf_t) tx(buf []uint8, write bool) (int, defs.Err_t) {
	ret := 0
	for len(buf) != 0 && ub.off != ub.len {
		va := ub.base + Va_t(ub.off)
		pg, ok := ub.pdt.Bytes(va)
		if !ok {
			return ret, -defs.EFAULT
		}
		left := ub.len - ub.off
		if len(pg) > left {
			pg = pg[:left]
		}
		var c int
		if write {
			c = copy(pg, buf)
		} else {
			c = copy(buf, pg)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
	}
	return ret, 0
}

// Uioread copies from the user buffer into dst.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) { return ub.tx(dst, false) }

// Uiowrite copies src into the user buffer.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) { return ub.tx(src, true) }

// Fakeubuf_t implements the same interface as Userbuf_t but moves bytes
// to and from an ordinary kernel slice. It lets kernel-internal code (the
// keyboard driver's decode-to-queue copy, and tests) reuse every device
// Read/Write path without a real address space.
type Fakeubuf_t struct {
	buf []uint8
	len int
}

// Fake_init initializes the fake buffer over buf.
func (fb *Fakeubuf_t) Fake_init(buf []uint8) {
	fb.buf = buf
	fb.len = len(buf)
}

func (fb *Fakeubuf_t) Remain() int  { return len(fb.buf) }
func (fb *Fakeubuf_t) Totalsz() int { return fb.len }

func (fb *Fakeubuf_t) tx(buf []uint8, tofbuf bool) (int, defs.Err_t) {
	var c int
	if tofbuf {
		c = copy(fb.buf, buf)
	} else {
		c = copy(buf, fb.buf)
	}
	fb.buf = fb.buf[c:]
	return c, 0
}

func (fb *Fakeubuf_t) Uioread(dst []uint8) (int, defs.Err_t)  { return fb.tx(dst, false) }
func (fb *Fakeubuf_t) Uiowrite(src []uint8) (int, defs.Err_t) { return fb.tx(src, true) }
