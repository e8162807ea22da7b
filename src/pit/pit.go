// Package pit drives PIT channel 0: reload, re-arm, and per-tick
// bookkeeping for the timer IRQ path (spec section 4.4's timer vector
// calls Tick on every interrupt). It is new code, grounded the same
// way pic is -- spec section 1 names PIT programming an out-of-scope
// collaborator, so there is no teacher source to adapt -- built over
// pci.Ports rather than a second I/O-access mechanism.
package pit

import "pci"

const (
	channel0Data uint16 = 0x40
	cmdPort      uint16 = 0x43

	// mode 2 (rate generator), lobyte/hibyte access, channel 0.
	mode2LobyteHibyteCh0 = 0x34

	// base input frequency of the 8254, in Hz.
	baseFreq = 1193182
)

// Pit_t tracks the configured tick rate and how many ticks have
// elapsed since Init, the counter the signal manager's tick_down
// consumes to time out pending polls.
type Pit_t struct {
	hz     int
	ticks  uint64
}

var Pit = &Pit_t{}

// Init programs channel 0 for a periodic interrupt at hz, the timer
// IRQ's re-arm frequency. hz must be low enough that the 16-bit
// reload count (baseFreq/hz) doesn't overflow; anything from 18 to a
// few thousand Hz is realistic for a preemptive scheduler tick.
func Init(hz int) {
	if hz <= 0 {
		hz = 100
	}
	Pit.hz = hz
	Pit.ticks = 0

	reload := uint16(baseFreq / hz)
	pci.Ports.Outb(cmdPort, mode2LobyteHibyteCh0)
	pci.Ports.Outb(channel0Data, uint8(reload))
	pci.Ports.Outb(channel0Data, uint8(reload>>8))
}

// Tick is called from the timer interrupt vector on every IRQ0; it
// advances the tick counter and returns the elapsed-milliseconds delta
// since the previous tick, the value intr forwards into the signal
// manager's TickDown.
func (p *Pit_t) Tick() int {
	p.ticks++
	if p.hz == 0 {
		return 0
	}
	return 1000 / p.hz
}

// Ticks returns the number of timer interrupts serviced since Init.
func (p *Pit_t) Ticks() uint64 {
	return p.ticks
}

// Hz returns the configured tick frequency.
func (p *Pit_t) Hz() int {
	return p.hz
}
