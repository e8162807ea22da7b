package ufs

import (
	"os"
	"sync"
)

import "defs"
import "fs"

// FileDisk_t simulates a raw ATA disk backed by a host file: reads
// and writes move exactly one fs.BSIZE-byte sector at a time, which
// is also the unit the ATA/PIO driver transfers per spec section
// 4.10's per-sector polling loop. It is grounded directly on the
// teacher's ahci_disk_t (src/ufs/driver.go), adapted from the
// asynchronous Bdev_req_t/block-cache API that package's full
// journaled filesystem needed down to the bare synchronous
// ReadSector/WriteSector pair a PIO driver actually issues.
type FileDisk_t struct {
	sync.Mutex
	f *os.File
}

// OpenFileDisk opens an existing disk image for read/write.
func OpenFileDisk(path string) (*FileDisk_t, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDisk_t{f: f}, nil
}

// Sectors reports the image's total sector count.
func (d *FileDisk_t) Sectors() (uint64, error) {
	st, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(st.Size()) / fs.BSIZE, nil
}

// ReadSector reads one fs.BSIZE-byte sector at lba.
func (d *FileDisk_t) ReadSector(lba uint64) ([]byte, defs.Err_t) {
	d.Lock()
	defer d.Unlock()
	if _, err := d.f.Seek(int64(lba)*fs.BSIZE, 0); err != nil {
		return nil, -defs.EIO
	}
	buf := make([]byte, fs.BSIZE)
	if n, err := d.f.Read(buf); n != fs.BSIZE || err != nil {
		return nil, -defs.EIO
	}
	return buf, 0
}

// WriteSector writes one fs.BSIZE-byte sector at lba.
func (d *FileDisk_t) WriteSector(lba uint64, data []byte) defs.Err_t {
	if len(data) != fs.BSIZE {
		panic("ufs: WriteSector: bad sector size")
	}
	d.Lock()
	defer d.Unlock()
	if _, err := d.f.Seek(int64(lba)*fs.BSIZE, 0); err != nil {
		return -defs.EIO
	}
	if n, err := d.f.Write(data); n != fs.BSIZE || err != nil {
		return -defs.EIO
	}
	return 0
}

// Flush forces pending writes to the backing file to stable storage,
// the host-side equivalent of the ATA driver's CACHE_FLUSH[_EXT].
func (d *FileDisk_t) Flush() defs.Err_t {
	d.Lock()
	defer d.Unlock()
	if err := d.f.Sync(); err != nil {
		return -defs.EIO
	}
	return 0
}

// Close releases the backing file.
func (d *FileDisk_t) Close() error {
	return d.f.Close()
}
