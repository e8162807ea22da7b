// Package ufs implements the flat, non-journaled directory format
// this kernel stores binaries in. Real file-system layout is out of
// scope (spec section 1); this is just enough of one to let boot
// mount a root, find "/init", and let execve open a named binary --
// the minimum the rest of the core actually calls through fs.Dirent_t.
package ufs

import "defs"
import "fs"
import "stat"

// Ufs_t is the open root directory of a disk image.
type Ufs_t struct {
	disk *FileDisk_t
	sb   fs.Superblock_t
	root []fs.Dirdata_t
}

// Boot opens an existing disk image and reads its superblock and
// root directory blocks into memory.
func Boot(path string) (*Ufs_t, defs.Err_t) {
	disk, err := OpenFileDisk(path)
	if err != nil {
		return nil, -defs.ENODEV
	}
	sb0, e := disk.ReadSector(0)
	if e != 0 {
		return nil, e
	}
	u := &Ufs_t{disk: disk, sb: fs.Superblock_t{Data: sb0}}
	n := u.sb.RootBlocks()
	u.root = make([]fs.Dirdata_t, n)
	for i := uint32(0); i < n; i++ {
		blk, e := disk.ReadSector(uint64(u.sb.RootSector()) + uint64(i))
		if e != 0 {
			return nil, e
		}
		u.root[i] = fs.Dirdata_t{Data: blk}
	}
	return u, 0
}

// Close releases the backing disk image.
func (u *Ufs_t) Close() error {
	return u.disk.Close()
}

// lookup returns the directory entry for name, or ok=false.
func (u *Ufs_t) lookup(name string) (sector, size uint32, ok bool) {
	for _, dd := range u.root {
		for i := 0; i < fs.NDIRENTS; i++ {
			n := dd.Filename(i)
			if n == nil {
				continue
			}
			if string(n) == name {
				return dd.Sector(i), dd.Size(i), true
			}
		}
	}
	return 0, 0, false
}

// Read returns the full contents of the named file.
func (u *Ufs_t) Read(name string) ([]byte, defs.Err_t) {
	sector, size, ok := u.lookup(name)
	if !ok {
		return nil, -defs.ENOENT
	}
	nblocks := (size + fs.BSIZE - 1) / fs.BSIZE
	out := make([]byte, 0, nblocks*fs.BSIZE)
	for i := uint32(0); i < nblocks; i++ {
		blk, e := u.disk.ReadSector(uint64(sector) + uint64(i))
		if e != 0 {
			return nil, e
		}
		out = append(out, blk...)
	}
	return out[:size], 0
}

// Stat returns POSIX-like metadata for the named file, the payload
// behind a future fstat-style syscall (spec section 4.9 lists none
// today, but execve and the shell both want file size up front).
func (u *Ufs_t) Stat(name string) (*stat.Stat_t, defs.Err_t) {
	sector, size, ok := u.lookup(name)
	if !ok {
		return nil, -defs.ENOENT
	}
	st := &stat.Stat_t{}
	st.Wdev(uint(defs.D_RAWDISK))
	st.Wrdev(uint(defs.D_RAWDISK))
	st.Wino(uint(sector))
	st.Wsize(uint(size))
	st.Wmode(0)
	return st, 0
}

// Ls lists the names and sizes of every file in the root directory.
func (u *Ufs_t) Ls() map[string]uint32 {
	res := make(map[string]uint32)
	for _, dd := range u.root {
		for i := 0; i < fs.NDIRENTS; i++ {
			n := dd.Filename(i)
			if n == nil {
				continue
			}
			res[string(n)] = dd.Size(i)
		}
	}
	return res
}
