// Package pic programs the master/slave 8259 PICs and implements the
// interrupt dispatcher's EOI-with-spurious-IRQ gate (spec sections 4.4
// and 6). Spec section 1 lists PIC programming as an out-of-scope
// collaborator presenting only an interface to the core; this is that
// interface, built -- like pit and keyboard -- over pci.Ports, the
// simulated I/O-port primitive this tree already uses for ATA register
// access, since nothing in the pack models 8259 hardware.
package pic

import "pci"

// Port addresses of the two 8259 controllers.
const (
	MasterCmd  uint16 = 0x20
	MasterData uint16 = 0x21
	SlaveCmd   uint16 = 0xA0
	SlaveData  uint16 = 0xA1
)

// Vector bases spec section 6 specifies: master remapped to 0x20-0x27,
// slave to 0x28-0x2F.
const (
	MasterBase = 0x20
	SlaveBase  = 0x28

	IrqTimer     = MasterBase + 0
	IrqKeyboard  = MasterBase + 1
	IrqAtaSecond = SlaveBase + 7 // vector 0x2F, secondary ATA
	IrqAtaFirst  = SlaveBase + 6 // vector 0x2E, primary ATA

	masterSpuriousIrq = 7 // LPT1, the conventional spurious source on the master
	slaveSpuriousIrq  = 7 // secondary ATA, the conventional spurious source on the slave
)

const (
	icw1Init = 0x11
	icw4_8086 = 0x01
	ocwEoi    = 0x20
	ocwReadIsr = 0x0B
)

// Remap programs both controllers to the vector ranges above and masks
// every line except the two this kernel drives (timer, keyboard);
// callers unmask additional lines (e.g. the ATA IRQs) once their
// driver is ready to take interrupts.
func Remap() {
	p := pci.Ports

	p.Outb(MasterCmd, icw1Init)
	p.Outb(SlaveCmd, icw1Init)
	p.Outb(MasterData, MasterBase)
	p.Outb(SlaveData, SlaveBase)
	p.Outb(MasterData, 4) // tell master there is a slave at IRQ2
	p.Outb(SlaveData, 2)  // tell slave its cascade identity
	p.Outb(MasterData, icw4_8086)
	p.Outb(SlaveData, icw4_8086)

	p.Outb(MasterData, 0xFF)
	p.Outb(SlaveData, 0xFF)
	Unmask(IrqTimer)
	Unmask(IrqKeyboard)
}

func lineOf(vector int) (port uint16, bit uint8, master bool) {
	if vector >= SlaveBase {
		return SlaveData, uint8(vector - SlaveBase), false
	}
	return MasterData, uint8(vector - MasterBase), true
}

// Unmask enables delivery of the IRQ mapped to vector.
func Unmask(vector int) {
	port, bit, _ := lineOf(vector)
	cur := pci.Ports.Inb(port)
	pci.Ports.Outb(port, cur&^(1<<bit))
}

// Mask disables delivery of the IRQ mapped to vector.
func Mask(vector int) {
	port, bit, _ := lineOf(vector)
	cur := pci.Ports.Inb(port)
	pci.Ports.Outb(port, cur|(1<<bit))
}

// isr reads a controller's in-service register, used to distinguish a
// genuine IRQ7/IRQ15 from a spurious one.
func isr(cmdPort uint16) uint8 {
	pci.Ports.Outb(cmdPort, ocwReadIsr)
	return pci.Ports.Inb(cmdPort)
}

// Eoi acknowledges the interrupt at vector, applying spec section
// 4.4's spurious-IRQ gate: if the vector is the master's conventional
// spurious line (LPT1) and the master's ISR shows it was not really in
// service, no EOI is sent at all; if it is the slave's conventional
// spurious line (secondary ATA) and not truly in service, EOI goes
// only to the master (acknowledging the cascade) and not the slave.
func Eoi(vector int) {
	_, bit, master := lineOf(vector)

	if master {
		if bit == masterSpuriousIrq && isr(MasterCmd)&(1<<masterSpuriousIrq) == 0 {
			return
		}
		pci.Ports.Outb(MasterCmd, ocwEoi)
		return
	}

	if bit == slaveSpuriousIrq && isr(SlaveCmd)&(1<<slaveSpuriousIrq) == 0 {
		pci.Ports.Outb(MasterCmd, ocwEoi)
		return
	}
	pci.Ports.Outb(SlaveCmd, ocwEoi)
	pci.Ports.Outb(MasterCmd, ocwEoi)
}
