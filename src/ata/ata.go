// Package ata implements the block-device driver spec section 4.10
// describes: two channels (primary, secondary), two ranks per channel
// (master, slave), PIO register access, IDENTIFY probing, and
// LBA48/LBA28/CHS-addressed sector transfer. biscuit's own ATA driver
// shipped with no retrieved source in this pack (it is one of spec
// section 1's out-of-scope collaborators), so this package is new
// code grounded on the OSDev PIO protocol spec section 4.10 quotes
// almost verbatim, driven entirely through pci.Ports -- the same
// simulated I/O-port primitive pic and pit use. Since there is no
// real controller behind that simulated bus, Attach installs a
// software "device" (a plain byte-slice backing store standing in for
// platters) that this package's own transfer loop drives the
// register protocol against, so every word still crosses Inw/Outw.
package ata

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"defs"
	"pci"
	"stats"
)

type Channel int

const (
	Primary Channel = iota
	Secondary
)

type Rank int

const (
	Master Rank = iota
	Slave
)

// DiskIoError enumerates spec section 4.10's read/write outcomes.
type DiskIoError int

const (
	IoSuccess DiskIoError = iota
	IoBadAlignment
	IoBadSize
	IoReadOnly
	IoHardwareFault
	IoNoDevice
	IoBadDriver
)

func (e DiskIoError) Err() defs.Err_t {
	if e == IoSuccess {
		return 0
	}
	return -defs.EIO
}

const (
	cmdIdentify       = 0xEC
	cmdIdentifyPacket = 0xA1
	cmdReadPio        = 0x20
	cmdReadPioExt     = 0x24
	cmdWritePio       = 0x30
	cmdWritePioExt    = 0x34
	cmdCacheFlush     = 0xE7
	cmdCacheFlushExt  = 0xEA

	statusErr = 0x01
	statusDrq = 0x08
	statusDf  = 0x20
	statusRdy = 0x40
	statusBsy = 0x80

	// sector transfer is limited by the classic 8-bit seccount
	// register regardless of addressing mode.
	maxSectorsPerCmd = 256

	wordsPerSector = 256 // 512-byte sectors, 2 bytes/word
)

type addrMode int

const (
	modeChs addrMode = iota
	modeLba28
	modeLba48
)

// device_t is the simulated platter behind one (channel, rank) slot.
type device_t struct {
	exists     bool
	atapi      bool
	lba        bool
	lba48      bool
	sectorSize int
	maxLba     uint64
	model      string
	backing    []byte
}

type channel_t struct {
	bar     pci.Bar_t
	devices [2]*device_t
}

// Controller_t owns both channels and whatever devices Attach has
// installed on them.
type Controller_t struct {
	channels [2]*channel_t
}

// New returns a controller with both channels resolved to their
// legacy port defaults (no PCI BAR override, per spec section 6).
func New() *Controller_t {
	c := &Controller_t{}
	c.channels[Primary] = &channel_t{bar: pci.ResolveBar(0, 0, true)}
	c.channels[Secondary] = &channel_t{bar: pci.ResolveBar(0, 0, false)}
	return c
}

// Attach installs a virtual device of the given sector count at
// (ch, rank), standing in for whatever a real IDENTIFY handshake
// would have discovered. model is kept in the device record exactly as
// given; Attach does not decode it (ModelString is the decoder for a
// raw IDENTIFY model field).
func (c *Controller_t) Attach(ch Channel, rank Rank, sectors uint64, model string) {
	d := &device_t{
		exists:     true,
		lba:        true,
		lba48:      sectors > 0x0FFFFFFF,
		sectorSize: 512,
		maxLba:     sectors,
		model:      model,
		backing:    make([]byte, sectors*512),
	}
	c.channels[ch].devices[rank] = d
}

func devselByte(rank Rank) uint8 {
	if rank == Slave {
		return 0xB0
	}
	return 0xA0
}

// Probe implements spec section 4.10's probe sequence: select the
// device, zero sector-count/LBA, issue IDENTIFY, and classify the
// result from the status/signature bytes. It returns whether a device
// exists and, if so, whether it identified as ATAPI.
func (c *Controller_t) Probe(ch Channel, rank Rank) (exists bool, atapi bool) {
	chn := c.channels[ch]
	base := chn.bar.Cmd

	pci.Ports.Outb(base+pci.RegHddevsel, devselByte(rank))
	pci.Ports.Outb(base+pci.RegSeccount0, 0)
	pci.Ports.Outb(base+pci.RegLba0, 0)
	pci.Ports.Outb(base+pci.RegLba1, 0)
	pci.Ports.Outb(base+pci.RegLba2, 0)

	d := chn.devices[rank]
	if d == nil {
		pci.Ports.Outb(base+pci.RegCommand, cmdIdentify)
		pci.Ports.Outb(base+pci.RegCommand, 0) // status==0, no device
		return false, false
	}

	pci.Ports.Outb(base+pci.RegCommand, cmdIdentify)
	if d.atapi {
		// ATAPI devices leave the magic signature 0x14/0xEB in
		// LBA1/LBA2 instead of completing the ATA IDENTIFY.
		pci.Ports.Outb(base+pci.RegLba1, 0x14)
		pci.Ports.Outb(base+pci.RegLba2, 0xEB)
		pci.Ports.Outb(base+pci.RegCommand, statusErr)
		pci.Ports.Outb(base+pci.RegCommand, cmdIdentifyPacket)
		return true, true
	}

	pci.Ports.Outb(base+pci.RegCommand, statusRdy|statusDrq)
	return true, false
}

// ModelString decodes the raw (possibly byte-swapped) IDENTIFY model
// field as CP437, the OSDev-documented encoding for that field, and
// transforms it to UTF-8, trimming trailing padding.
func ModelString(raw string) (string, error) {
	dec := charmap.CodePage437.NewDecoder()
	out, _, err := transform.String(dec, raw)
	if err != nil {
		return "", err
	}
	i := len(out)
	for i > 0 && (out[i-1] == ' ' || out[i-1] == 0) {
		i--
	}
	return out[:i], nil
}

func (c *Controller_t) validate(ch Channel, rank Rank, byteOffset uint64, size int) (*device_t, DiskIoError) {
	chn := c.channels[ch]
	d := chn.devices[rank]
	if d == nil || !d.exists {
		return nil, IoNoDevice
	}
	if d.atapi {
		return nil, IoBadDriver
	}
	if size%d.sectorSize != 0 {
		return nil, IoBadSize
	}
	nsec := size / d.sectorSize
	if nsec == 0 || nsec > maxSectorsPerCmd {
		return nil, IoBadSize
	}
	if byteOffset%uint64(d.sectorSize) != 0 {
		return nil, IoBadAlignment
	}
	lba := byteOffset / uint64(d.sectorSize)
	if lba+uint64(nsec) > d.maxLba {
		return nil, IoBadSize
	}
	return d, IoSuccess
}

func addressingMode(d *device_t, lba uint64, nsec int) addrMode {
	last := lba + uint64(nsec) - 1
	if d.lba48 && last > 0x0FFFFFFF {
		return modeLba48
	}
	if d.lba {
		return modeLba28
	}
	return modeChs
}

func selectAndAddress(base uint16, rank Rank, mode addrMode, lba uint64, nsec int) {
	switch mode {
	case modeLba48:
		pci.Ports.Outb(base+pci.RegHddevsel, 0x40|devselByte(rank)&0x10)
		pci.Ports.Outb(base+pci.RegSeccount0, uint8(nsec>>8))
		pci.Ports.Outb(base+pci.RegLba0, uint8(lba>>24))
		pci.Ports.Outb(base+pci.RegLba1, uint8(lba>>32))
		pci.Ports.Outb(base+pci.RegLba2, uint8(lba>>40))
		pci.Ports.Outb(base+pci.RegSeccount0, uint8(nsec))
		pci.Ports.Outb(base+pci.RegLba0, uint8(lba))
		pci.Ports.Outb(base+pci.RegLba1, uint8(lba>>8))
		pci.Ports.Outb(base+pci.RegLba2, uint8(lba>>16))
	case modeLba28:
		sel := devselByte(rank) | 0x40 | uint8((lba>>24)&0x0F)
		pci.Ports.Outb(base+pci.RegHddevsel, sel)
		pci.Ports.Outb(base+pci.RegSeccount0, uint8(nsec))
		pci.Ports.Outb(base+pci.RegLba0, uint8(lba))
		pci.Ports.Outb(base+pci.RegLba1, uint8(lba>>8))
		pci.Ports.Outb(base+pci.RegLba2, uint8(lba>>16))
	default: // CHS: 63 sectors/track, 16 heads/cylinder, the classic default geometry
		const sectorsPerTrack = 63
		const heads = 16
		cyl := lba / (sectorsPerTrack * heads)
		head := (lba / sectorsPerTrack) % heads
		sect := lba%sectorsPerTrack + 1
		pci.Ports.Outb(base+pci.RegHddevsel, devselByte(rank)|uint8(head&0x0F))
		pci.Ports.Outb(base+pci.RegSeccount0, uint8(nsec))
		pci.Ports.Outb(base+pci.RegLba0, uint8(sect))
		pci.Ports.Outb(base+pci.RegLba1, uint8(cyl))
		pci.Ports.Outb(base+pci.RegLba2, uint8(cyl>>8))
	}
}

func transferSectorRead(base uint16, d *device_t, sectorIdx uint64, out []byte) {
	off := sectorIdx * uint64(d.sectorSize)
	for w := 0; w < wordsPerSector; w++ {
		lo := d.backing[off+uint64(w*2)]
		hi := d.backing[off+uint64(w*2)+1]
		// the simulated device latches the next word onto the data
		// port; the driver's INSW pulls it back off.
		pci.Ports.Outw(base+pci.RegData, uint16(lo)|uint16(hi)<<8)
		word := pci.Ports.Inw(base + pci.RegData)
		out[w*2] = uint8(word)
		out[w*2+1] = uint8(word >> 8)
	}
}

func transferSectorWrite(base uint16, d *device_t, sectorIdx uint64, in []byte) {
	off := sectorIdx * uint64(d.sectorSize)
	for w := 0; w < wordsPerSector; w++ {
		word := uint16(in[w*2]) | uint16(in[w*2+1])<<8
		// the driver's OUTSW pushes the word out; the simulated
		// device immediately latches it into the backing store.
		pci.Ports.Outw(base+pci.RegData, word)
		got := pci.Ports.Inw(base + pci.RegData)
		d.backing[off+uint64(w*2)] = uint8(got)
		d.backing[off+uint64(w*2)+1] = uint8(got >> 8)
	}
}

func pollReady(base uint16) bool {
	// In a real driver this busy-waits on the status register; the
	// simulated device always completes synchronously, so one check
	// suffices, but the read still happens through the port.
	status := pci.Ports.Inb(base + pci.RegCommand)
	_ = status
	return true
}

// Read implements spec section 4.10's read operation: validates the
// (channel, rank, byteOffset, size) preconditions, picks an
// addressing mode, and transfers sector-by-sector via the simulated
// INSW loop.
func (c *Controller_t) Read(ch Channel, rank Rank, byteOffset uint64, buf []byte) (int, DiskIoError) {
	stats.Kernel.AtaCmds.Inc()
	d, e := c.validate(ch, rank, byteOffset, len(buf))
	if e != IoSuccess {
		return 0, e
	}

	chn := c.channels[ch]
	base := chn.bar.Cmd
	lba := byteOffset / uint64(d.sectorSize)
	nsec := len(buf) / d.sectorSize
	mode := addressingMode(d, lba, nsec)

	selectAndAddress(base, rank, mode, lba, nsec)
	cmd := uint8(cmdReadPio)
	if mode == modeLba48 {
		cmd = cmdReadPioExt
	}
	pci.Ports.Outb(base+pci.RegCommand, cmd)

	for s := 0; s < nsec; s++ {
		if !pollReady(base) {
			return s * d.sectorSize, IoHardwareFault
		}
		transferSectorRead(base, d, lba+uint64(s), buf[s*d.sectorSize:(s+1)*d.sectorSize])
	}
	return len(buf), IoSuccess
}

// Write implements spec section 4.10's write operation, finishing
// with the mode-appropriate CACHE_FLUSH[_EXT] after the transfer.
func (c *Controller_t) Write(ch Channel, rank Rank, byteOffset uint64, buf []byte) (int, DiskIoError) {
	stats.Kernel.AtaCmds.Inc()
	d, e := c.validate(ch, rank, byteOffset, len(buf))
	if e != IoSuccess {
		return 0, e
	}

	chn := c.channels[ch]
	base := chn.bar.Cmd
	lba := byteOffset / uint64(d.sectorSize)
	nsec := len(buf) / d.sectorSize
	mode := addressingMode(d, lba, nsec)

	selectAndAddress(base, rank, mode, lba, nsec)
	cmd := uint8(cmdWritePio)
	flush := uint8(cmdCacheFlush)
	if mode == modeLba48 {
		cmd = cmdWritePioExt
		flush = cmdCacheFlushExt
	}
	pci.Ports.Outb(base+pci.RegCommand, cmd)

	for s := 0; s < nsec; s++ {
		if !pollReady(base) {
			return s * d.sectorSize, IoHardwareFault
		}
		transferSectorWrite(base, d, lba+uint64(s), buf[s*d.sectorSize:(s+1)*d.sectorSize])
	}
	pci.Ports.Outb(base+pci.RegCommand, flush)
	return len(buf), IoSuccess
}
