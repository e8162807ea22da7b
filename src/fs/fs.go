// Package fs defines the minimal on-disk layout this kernel needs to
// find named binaries at boot and via execve. Spec section 1 lists
// "the file-system layout on disk" as an external collaborator, out
// of scope for the core; this package is the thin interface the core
// actually touches -- a flat directory of named, contiguously-stored
// files -- not a reimplementation of the teacher's journaled,
// inode-based filesystem (whose Bdev_block_t/Bdev_req_t/Superblock_t
// machinery this package deliberately does not carry forward; see
// DESIGN.md).
package fs

import "util"

// BSIZE is the on-disk block size, chosen to equal one ATA sector so
// every directory/file block maps to exactly one PIO sector transfer.
const BSIZE = 512

// NameMax is the longest file name a directory entry can hold.
const NameMax = 28

// direntSize is the on-disk size of one Dirent_t.
const direntSize = NameMax + 4 + 4

// NDIRENTS is the number of directory entries that fit in one block.
const NDIRENTS = BSIZE / direntSize

// Dirent_t is one flat-directory entry: a name, the starting sector
// of the file's contiguous data, and its size in bytes.
type Dirent_t struct {
	Name   [NameMax]byte
	Sector uint32
	Size   uint32
}

// Dirdata_t is a decoded view over one on-disk directory block.
type Dirdata_t struct {
	Data []byte
}

func (dd Dirdata_t) off(i int) int { return i * direntSize }

// Filename returns the i'th entry's name, trimmed at the first NUL,
// or nil if the entry is empty.
func (dd Dirdata_t) Filename(i int) []byte {
	o := dd.off(i)
	raw := dd.Data[o : o+NameMax]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, raw[:n])
	return out
}

// Sector returns the i'th entry's starting sector.
func (dd Dirdata_t) Sector(i int) uint32 {
	o := dd.off(i) + NameMax
	return uint32(util.Readn(dd.Data, 4, o))
}

// Size returns the i'th entry's size in bytes.
func (dd Dirdata_t) Size(i int) uint32 {
	o := dd.off(i) + NameMax + 4
	return uint32(util.Readn(dd.Data, 4, o))
}

// SetEntry writes entry i with the given name/sector/size.
func (dd Dirdata_t) SetEntry(i int, name string, sector, size uint32) {
	o := dd.off(i)
	for j := range dd.Data[o : o+NameMax] {
		dd.Data[o+j] = 0
	}
	copy(dd.Data[o:o+NameMax], name)
	util.Writen(dd.Data, 4, o+NameMax, int(sector))
	util.Writen(dd.Data, 4, o+NameMax+4, int(size))
}

// Superblock_t is the on-disk root record: sector 0 of the image.
// RootSector names the block holding the root directory's entries;
// RootBlocks is how many consecutive directory blocks follow it.
type Superblock_t struct {
	Data []byte
}

func (sb Superblock_t) RootSector() uint32 { return uint32(util.Readn(sb.Data, 4, 0)) }
func (sb Superblock_t) RootBlocks() uint32 { return uint32(util.Readn(sb.Data, 4, 4)) }

func (sb Superblock_t) SetRootSector(v uint32) { util.Writen(sb.Data, 4, 0, int(v)) }
func (sb Superblock_t) SetRootBlocks(v uint32) { util.Writen(sb.Data, 4, 4, int(v)) }
