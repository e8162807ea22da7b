package proc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"mem"
	"vm"
)

// buildElf32 assembles a minimal valid 32-bit little-endian executable
// ELF with a single PT_LOAD segment carrying payload at vaddr, entry
// point set to vaddr, so LoadElf has something real to parse without
// a host toolchain available to produce one.
func buildElf32(vaddr uint32, payload []byte) []byte {
	const ehsize = 52
	const phsize = 32

	var buf bytes.Buffer
	ident := []byte{0x7f, 'E', 'L', 'F', 1 /* ELFCLASS32 */, 1 /* little endian */, 1, 0,
		0, 0, 0, 0, 0, 0, 0, 0}
	buf.Write(ident)
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // e_type ET_EXEC
	binary.Write(&buf, binary.LittleEndian, uint16(3))  // e_machine EM_386
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // e_version
	binary.Write(&buf, binary.LittleEndian, uint32(vaddr)) // e_entry
	binary.Write(&buf, binary.LittleEndian, uint32(ehsize)) // e_phoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_flags
	binary.Write(&buf, binary.LittleEndian, uint16(ehsize))
	binary.Write(&buf, binary.LittleEndian, uint16(phsize))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // e_phnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shstrndx

	dataOff := uint32(ehsize + phsize)
	binary.Write(&buf, binary.LittleEndian, uint32(1)) // p_type PT_LOAD
	binary.Write(&buf, binary.LittleEndian, dataOff)   // p_offset
	binary.Write(&buf, binary.LittleEndian, vaddr)     // p_vaddr
	binary.Write(&buf, binary.LittleEndian, vaddr)     // p_paddr
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload))) // p_filesz
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload))) // p_memsz
	binary.Write(&buf, binary.LittleEndian, uint32(5)) // p_flags R+X
	binary.Write(&buf, binary.LittleEndian, uint32(vm.PGSIZE))

	buf.Write(payload)
	return buf.Bytes()
}

func TestLoadElfMapsSegmentAndEntry(t *testing.T) {
	mem.Init([]mem.Region_t{{Start: 0, Len: 8 * 1024 * 1024}})

	payload := []byte("\x90\x90\x90\x90hello-elf")
	const vaddr = 0x08048000
	image := buildElf32(vaddr, payload)

	pdt, entry, err := LoadElf(image)
	require.Zero(t, err)
	require.Equal(t, vm.Va_t(vaddr), entry)

	pg, ok := pdt.Bytes(vm.Va_t(vaddr))
	require.True(t, ok)
	require.Equal(t, payload, pg[:len(payload)])
}

func TestLoadElfRejectsBadMagic(t *testing.T) {
	_, _, err := LoadElf([]byte("not an elf"))
	require.NotZero(t, err)
}
