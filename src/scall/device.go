package scall

import (
	"bytes"
	"fmt"

	"accnt"
	"ata"
	"defs"
	"fdops"
	"proc"
	"stats"
)

// profFops is the D_PROF device's file description (SPEC_FULL.md
// section 10): opening it snapshots every live process's accounting
// counters into a pprof-format profile, and reads stream the
// serialized bytes out, cursor-advancing the same way ufs.File_t does
// for an on-disk file.
type profFops struct {
	data []byte
	pos  int
}

func newProfFops(pt *proc.ProcTable_t) *profFops {
	byPid := make(map[int]*accnt.Accnt_t)
	for _, p := range pt.All() {
		byPid[int(p.Pid)] = &p.Accnt
	}
	var buf bytes.Buffer
	accnt.Profile(byPid).WriteUncompressed(&buf)
	return &profFops{data: buf.Bytes()}
}

func (f *profFops) Close() defs.Err_t  { return 0 }
func (f *profFops) Reopen() defs.Err_t { return 0 }

func (f *profFops) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if f.pos >= len(f.data) {
		return 0, 0
	}
	n, err := dst.Uiowrite(f.data[f.pos:])
	f.pos += n
	return n, err
}

func (f *profFops) Write(src fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.EROFS
}

func (f *profFops) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	return events & defs.POLLIN, 0
}

// rawdiskSectorSize mirrors the 512-byte sectors ata.Controller_t
// addresses; reads/writes are cut down to a whole number of sectors,
// so one narrower than a sector transfers nothing and returns 0 with
// no error.
const rawdiskSectorSize = 512

// rawdiskFops is the D_RAWDISK device's file description: a cursor
// over the primary channel's master device, bound straight onto
// ata.Controller_t so spec section 1's "illustrative device driver
// bound to the VFS" claim is actually reachable through open/read/
// write rather than only exercised by ata's own package tests.
type rawdiskFops struct {
	ctl *ata.Controller_t
	pos uint64
}

func (f *rawdiskFops) Close() defs.Err_t  { return 0 }
func (f *rawdiskFops) Reopen() defs.Err_t { return 0 }

func (f *rawdiskFops) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	n := dst.Remain()
	n -= n % rawdiskSectorSize
	if n == 0 {
		return 0, 0
	}
	buf := make([]byte, n)
	got, e := f.ctl.Read(ata.Primary, ata.Master, f.pos, buf)
	if e != ata.IoSuccess {
		return 0, e.Err()
	}
	w, err := dst.Uiowrite(buf[:got])
	f.pos += uint64(w)
	return w, err
}

func (f *rawdiskFops) Write(src fdops.Userio_i) (int, defs.Err_t) {
	n := src.Remain()
	n -= n % rawdiskSectorSize
	if n == 0 {
		return 0, 0
	}
	buf := make([]byte, n)
	r, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	put, e := f.ctl.Write(ata.Primary, ata.Master, f.pos, buf[:r])
	if e != ata.IoSuccess {
		return 0, e.Err()
	}
	f.pos += uint64(put)
	return put, 0
}

func (f *rawdiskFops) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	return events & (defs.POLLIN | defs.POLLOUT), 0
}

// statFops is the D_STAT device: a text snapshot of stats.Kernel's
// Counter_t fields, formatted with stats.Stats2String the same way the
// teacher's diagnostic code would have, plus the total IRQ count
// stats.Irqs (spec section 6's device list). The per-vector
// stats.Nirqs tallies are not included.
type statFops struct {
	data []byte
	pos  int
}

func newStatFops() *statFops {
	s := stats.Stats2String(stats.Kernel)
	s += fmt.Sprintf("\t#TotalIrqs: %d\n", stats.Irqs)
	return &statFops{data: []byte(s)}
}

func (f *statFops) Close() defs.Err_t  { return 0 }
func (f *statFops) Reopen() defs.Err_t { return 0 }

func (f *statFops) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if f.pos >= len(f.data) {
		return 0, 0
	}
	n, err := dst.Uiowrite(f.data[f.pos:])
	f.pos += n
	return n, err
}

func (f *statFops) Write(src fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.EROFS
}

func (f *statFops) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	return events & defs.POLLIN, 0
}

// devnullFops is /dev/null: reads always report EOF, writes always
// succeed and discard every byte.
type devnullFops struct{}

func (f *devnullFops) Close() defs.Err_t  { return 0 }
func (f *devnullFops) Reopen() defs.Err_t { return 0 }

func (f *devnullFops) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	return 0, 0
}

func (f *devnullFops) Write(src fdops.Userio_i) (int, defs.Err_t) {
	sink := make([]byte, src.Remain())
	return src.Uioread(sink)
}

func (f *devnullFops) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	return events & (defs.POLLIN | defs.POLLOUT), 0
}
