package proc

import (
	"debug/elf"
	"bytes"

	"defs"
	"vm"
)

// DefaultStackSize is the initial user stack reservation execve sets
// up, matching the increment SetUserStack grows from.
const DefaultStackSize = 8 * vm.PGSIZE

// LoadElf builds a fresh address space from a 32-bit protected-mode
// ELF image (the format chentry already rewrites the entry point of,
// see cmd/chentry): every PT_LOAD segment is mapped and copied in,
// and a zeroed user stack is reserved below UserTop. It returns the
// new PDT and the entry point, or an error if the image is malformed
// or a mapping fails partway through -- in which case LoadElf releases
// the partially built PDT's frames itself and returns a nil PDT.
func LoadElf(image []byte) (*vm.PDT_t, vm.Va_t, defs.Err_t) {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return nil, 0, -defs.EINVAL
	}
	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_386 {
		return nil, 0, -defs.EINVAL
	}

	pdt := vm.New()
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if err := mapSegment(pdt, image, prog); err != 0 {
			pdt.Clear()
			return nil, 0, err
		}
	}

	stackTop := vm.Va_t(uintptr(UserTop))
	stackBase := vm.Va_t(uintptr(stackTop) - uintptr(DefaultStackSize))
	for v := stackBase; v < stackTop; v += vm.Va_t(vm.PGSIZE) {
		if !pdt.Allocate(v, vm.PTE_P|vm.PTE_W|vm.PTE_U, nil, nil) {
			pdt.Clear()
			return nil, 0, -defs.ENOMEM
		}
	}

	return pdt, vm.Va_t(f.Entry), 0
}

func mapSegment(pdt *vm.PDT_t, image []byte, prog *elf.Prog) defs.Err_t {
	flags := vm.PTE_P | vm.PTE_U
	if prog.Flags&elf.PF_W != 0 {
		flags |= vm.PTE_W
	}

	base := vm.Va_t(prog.Vaddr) &^ vm.Va_t(vm.PGSIZE-1)
	end := vm.Va_t(prog.Vaddr+prog.Memsz+uint64(vm.PGSIZE)-1) &^ vm.Va_t(vm.PGSIZE-1)
	for v := base; v < end; v += vm.Va_t(vm.PGSIZE) {
		if !pdt.Allocate(v, flags, nil, nil) {
			return -defs.ENOMEM
		}
	}

	fileBytes := make([]byte, prog.Memsz)
	n, rerr := prog.ReadAt(fileBytes[:prog.Filesz], 0)
	if rerr != nil || uint64(n) != prog.Filesz {
		return -defs.EINVAL
	}

	written := uint64(0)
	for written < prog.Memsz {
		va := vm.Va_t(prog.Vaddr + written)
		pg, ok := pdt.Bytes(va)
		if !ok {
			return -defs.EFAULT
		}
		c := copy(pg, fileBytes[written:])
		if c == 0 {
			break
		}
		written += uint64(c)
	}
	return 0
}
