package vm

import (
	"defs"
	"ustr"
)

// Userreadn reads n (<=8) bytes from user address va and returns them as
// an integer, little-endian.
func (pdt *PDT_t) Userreadn(va Va_t, n int) (int, defs.Err_t) {
	if n > 8 {
		panic("vm: Userreadn: n too large")
	}
	var buf [8]byte
	ub := Mkuserbuf(pdt, va, n)
	if _, err := ub.Uioread(buf[:n]); err != 0 {
		return 0, err
	}
	var ret int
	for i := n - 1; i >= 0; i-- {
		ret = ret<<8 | int(buf[i])
	}
	return ret, 0
}

// Userwriten writes the low n (<=8) bytes of val to user address va,
// little-endian.
func (pdt *PDT_t) Userwriten(va Va_t, n, val int) defs.Err_t {
	if n > 8 {
		panic("vm: Userwriten: n too large")
	}
	var buf [8]byte
	for i := 0; i < n; i++ {
		buf[i] = byte(val >> (8 * uint(i)))
	}
	ub := Mkuserbuf(pdt, va, n)
	_, err := ub.Uiowrite(buf[:n])
	return err
}

// Userstr copies a NUL-terminated string from user space, up to lenmax
// bytes. It returns ENAMETOOLONG if no NUL is found within lenmax.
func (pdt *PDT_t) Userstr(uva Va_t, lenmax int) (ustr.Ustr, defs.Err_t) {
	if lenmax < 0 {
		return nil, 0
	}
	s := ustr.MkUstr()
	var buf [64]byte
	i := 0
	for {
		pg, ok := pdt.Bytes(uva + Va_t(i))
		if !ok {
			return nil, -defs.EFAULT
		}
		chunk := buf[:]
		if len(pg) < len(chunk) {
			chunk = chunk[:len(pg)]
		}
		n := copy(chunk, pg)
		for j := 0; j < n; j++ {
			if chunk[j] == 0 {
				s = append(s, chunk[:j]...)
				if len(s) >= lenmax {
					return nil, -defs.ENAMETOOLONG
				}
				return s, 0
			}
		}
		s = append(s, chunk[:n]...)
		i += n
		if len(s) >= lenmax {
			return nil, -defs.ENAMETOOLONG
		}
	}
}

// K2user copies src into user space starting at uva.
func (pdt *PDT_t) K2user(src []uint8, uva Va_t) defs.Err_t {
	ub := Mkuserbuf(pdt, uva, len(src))
	for len(src) > 0 {
		n, err := ub.Uiowrite(src)
		if err != 0 {
			return err
		}
		src = src[n:]
	}
	return 0
}

// User2k copies len(dst) bytes from user space starting at uva into dst.
func (pdt *PDT_t) User2k(dst []uint8, uva Va_t) defs.Err_t {
	ub := Mkuserbuf(pdt, uva, len(dst))
	for len(dst) > 0 {
		n, err := ub.Uioread(dst)
		if err != 0 {
			return err
		}
		dst = dst[n:]
	}
	return 0
}
