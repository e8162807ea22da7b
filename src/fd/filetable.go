package fd

import (
	"sync"

	"defs"
)

// entry_t is one global file-table slot: the open descriptor plus how
// many process fd-map slots currently reference it.
type entry_t struct {
	fd       *Fd_t
	refcount int
}

// Filetable_t is the process-independent open-file table (spec section
// 4.6): every open file, pipe, or device stream in the kernel lives
// here exactly once, keyed by a small integer "global key" that every
// process's own fd map stores instead of the Fd_t itself, so fork can
// share an open file across processes by bumping a refcount rather
// than copying state.
type Filetable_t struct {
	sync.Mutex
	tbl map[int]*entry_t
}

// Gfiles is the kernel-wide file table singleton.
var Gfiles = &Filetable_t{tbl: map[int]*entry_t{}}

// OpenFile installs fd under the lowest unused key and returns it.
func (ft *Filetable_t) OpenFile(fd *Fd_t) int {
	ft.Lock()
	defer ft.Unlock()
	k := 1
	for {
		if _, taken := ft.tbl[k]; !taken {
			break
		}
		k++
	}
	ft.tbl[k] = &entry_t{fd: fd, refcount: 1}
	return k
}

// CopyFile bumps the refcount on an existing key, the table-side half
// of fork duplicating a process's fd map.
func (ft *Filetable_t) CopyFile(k int) defs.Err_t {
	ft.Lock()
	defer ft.Unlock()
	e, ok := ft.tbl[k]
	if !ok {
		return -defs.EBADF
	}
	e.refcount++
	return 0
}

// CloseFile decrements k's refcount, closing and removing the entry
// when it reaches zero.
func (ft *Filetable_t) CloseFile(k int) defs.Err_t {
	ft.Lock()
	e, ok := ft.tbl[k]
	if !ok {
		ft.Unlock()
		return -defs.EBADF
	}
	e.refcount--
	last := e.refcount == 0
	if last {
		delete(ft.tbl, k)
	}
	ft.Unlock()

	if last {
		Close_panic(e.fd)
	}
	return 0
}

// Get returns the Fd_t behind a global key.
func (ft *Filetable_t) Get(k int) (*Fd_t, defs.Err_t) {
	ft.Lock()
	defer ft.Unlock()
	e, ok := ft.tbl[k]
	if !ok {
		return nil, -defs.EBADF
	}
	return e.fd, 0
}
