package ufs

import (
	"defs"
	"fdops"
)

// File_t is an open, read-only file description over a name already
// resolved by Ufs_t.Open: the whole file is staged in memory (this
// disk format has no sparse/incremental read path, spec section 1
// treats the real file system as out of scope) and Read/Write track a
// cursor the way a real fd would.
type File_t struct {
	data []byte
	pos  int
}

// Open resolves name in the root directory and returns a read-only
// file description over its contents, the payload behind the
// syscall layer's open(2) for every path that isn't a device.
func (u *Ufs_t) Open(name string) (*File_t, defs.Err_t) {
	data, err := u.Read(name)
	if err != 0 {
		return nil, err
	}
	return &File_t{data: data}, 0
}

func (f *File_t) Close() defs.Err_t  { return 0 }
func (f *File_t) Reopen() defs.Err_t { return 0 }

// Read copies up to dst's capacity starting at the file's cursor,
// advancing it; reading past end of file returns 0 with no error
// (spec section 4.9: "EOF is not an error").
func (f *File_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if f.pos >= len(f.data) {
		return 0, 0
	}
	n, err := dst.Uiowrite(f.data[f.pos:])
	f.pos += n
	return n, err
}

// Write always fails: this disk format is read-only (spec section 1
// leaves a writable file system out of scope).
func (f *File_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.EROFS
}

// Pollcheck reports the file as always readable, never writable.
func (f *File_t) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	return events & defs.POLLIN, 0
}
