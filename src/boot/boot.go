// Package boot brings the kernel's components up in the dependency
// order spec section 4.11 describes (allocator before PDT before heap
// before everything that allocates), installs the PIC/PIT/keyboard
// collaborators, mounts the root file description, and launches the
// reserved init PID. biscuit's own boot sequence is machine code and
// runtime-internal assembly with no Go equivalent in this pack (it
// really is "the first few instructions after the bootloader"), so
// this composition root is new code: it is the one place that is
// allowed to know about every other package in the tree, wiring
// scall.Kernel_t and intr.Kernel_t from the same constructed
// singletons the way a real kernel's init routine would.
package boot

import (
	"fmt"

	"ata"
	"defs"
	"fd"
	"fdops"
	"intr"
	"keyboard"
	"kheap"
	"limits"
	"logger"
	"mem"
	"pic"
	"pit"
	"proc"
	"scall"
	"sched"
	"signal"
	"ufs"
	"vm"
)

// defaultDiskSectors/defaultDiskModel describe the simulated ATA
// device Run attaches at (Primary, Master) when no real disk
// identification is possible in this simulated environment (spec
// section 6 leaves IDENTIFY probing as the real protocol, but boot
// still needs *some* device for /dev/rawdisk to address).
const (
	defaultDiskSectors = 65536 // 32 MiB
	defaultDiskModel   = "QEMU HARDDISK                           "
)

// Config_t is the set of boot-time parameters spec section 4.11 calls
// "boot flags": how much simulated physical memory to hand the page
// allocator, where the root file system image lives on the host, which
// file in it to execve as init, and how chatty the logger should be.
type Config_t struct {
	MemBytes   uintptr
	DiskImage  string
	InitBinary string
	TimerHz    int
	LogLevel   logger.Level_t
}

// Kernel_t bundles every singleton Run constructs, for callers (tests,
// cmd/kernel) that need to inspect or drive the booted system further.
type Kernel_t struct {
	Log      *logger.Logger_t
	PT       *proc.ProcTable_t
	Sched    *sched.Scheduler_t
	Sig      *signal.Manager_t
	Root     *ufs.Ufs_t
	Ata      *ata.Controller_t
	Keyboard *keyboard.Keyboard_t

	ConsoleKey int
}

// consoleFops is the D_CONSOLE device: reads drain the keyboard's
// decoded input queue, writes go straight to the log at info level
// (this simulated kernel has no VGA text buffer to paint), and
// Pollcheck reports readiness for pollin whenever the keyboard has
// queued input and always reports writable.
type consoleFops struct {
	kb  *keyboard.Keyboard_t
	log *logger.Logger_t
}

func (c *consoleFops) Close() defs.Err_t  { return 0 }
func (c *consoleFops) Reopen() defs.Err_t { return 0 }

func (c *consoleFops) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	return c.kb.Read(dst)
}

func (c *consoleFops) Write(src fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return n, err
	}
	c.log.Infof("%s", string(buf[:n]))
	return n, 0
}

func (c *consoleFops) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	var ready defs.Ready_t
	if c.kb.Ready() {
		ready |= defs.POLLIN
	}
	ready |= defs.POLLOUT
	return ready & events, 0
}

// Run constructs the kernel's object graph in dependency order and
// starts the init process. It returns once init is runnable and
// scheduled in; driving further interrupts (timer ticks, keyboard
// input, the syscall vector) is the job of whatever trampoline calls
// intr.Dispatch, which spec section 1 leaves as an out-of-scope
// hardware/assembly collaborator.
func Run(cfg Config_t) (*Kernel_t, error) {
	if cfg.TimerHz <= 0 {
		cfg.TimerHz = 100
	}
	if cfg.InitBinary == "" {
		cfg.InitBinary = "/init"
	}

	mem.Init([]mem.Region_t{{Start: 0, Len: cfg.MemBytes}})

	kpdt := vm.New()
	kpdt.Load()
	kheap.Init(kpdt)

	log := logger.New(cfg.LogLevel, nil)

	pt := proc.MkProcTable(defs.Pid_t(limits.Syslimit.Sysprocs))
	sc := sched.New(pt)
	sig := signal.New(pt)

	kb := keyboard.New()
	pic.Remap()
	pit.Init(cfg.TimerHz)

	atactl := ata.New()
	atactl.Attach(ata.Primary, ata.Master, defaultDiskSectors, defaultDiskModel)
	pic.Unmask(pic.IrqAtaFirst)

	root, err := ufs.Boot(cfg.DiskImage)
	if err != 0 {
		return nil, fmt.Errorf("boot: mount %q: %s", cfg.DiskImage, err)
	}

	consoleKey := fd.Gfiles.OpenFile(&fd.Fd_t{
		Fops:  &consoleFops{kb: kb, log: log},
		Perms: fd.FD_READ | fd.FD_WRITE,
	})

	scall.Init(&scall.Kernel_t{
		PT: pt, Sched: sc, Sig: sig, Root: root, Ata: atactl,
		ConsoleKey: consoleKey,
	})
	intr.Init(&intr.Kernel_t{
		PT: pt, Sched: sc, Sig: sig, Keyboard: kb, Log: log,
		ConsoleKey: consoleKey,
	})

	image, err := root.Read(cfg.InitBinary)
	if err != 0 {
		return nil, fmt.Errorf("boot: read %q: %s", cfg.InitBinary, err)
	}
	initPDT, entry, err := proc.LoadElf(image)
	if err != 0 {
		return nil, fmt.Errorf("boot: load %q: %s", cfg.InitBinary, err)
	}

	initP := proc.New(proc.InitPid, 0)
	initP.PDT = initPDT
	initP.Tf.Eip = uint32(entry)
	initP.StackSize = proc.DefaultStackSize
	pt.AddInit(initP)

	if !sc.Start(proc.InitPid) {
		return nil, fmt.Errorf("boot: init pid %d failed to start", proc.InitPid)
	}

	log.Infof("boot: init running at pid %d, entry 0x%x", proc.InitPid, entry)

	return &Kernel_t{
		Log: log, PT: pt, Sched: sc, Sig: sig, Root: root, Ata: atactl,
		Keyboard: kb, ConsoleKey: consoleKey,
	}, nil
}

