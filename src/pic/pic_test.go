package pic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pci"
)

func reset() {
	pci.Ports.Lock()
	defer pci.Ports.Unlock()
}

func TestRemapMasksAllThenUnmasksTimerAndKeyboard(t *testing.T) {
	Remap()
	m := pci.Ports.Inb(MasterData)
	require.Zero(t, m&0x01, "timer line should be unmasked")
	require.Zero(t, m&0x02, "keyboard line should be unmasked")
	require.NotZero(t, m&0x04, "cascade line carries no driver so stays masked")
}

func TestUnmaskThenMaskRoundtrips(t *testing.T) {
	Remap()
	Unmask(IrqAtaFirst)
	s := pci.Ports.Inb(SlaveData)
	require.Zero(t, s&(1<<6))

	Mask(IrqAtaFirst)
	s = pci.Ports.Inb(SlaveData)
	require.NotZero(t, s&(1<<6))
}

func TestEoiSpuriousMasterSendsNoEoi(t *testing.T) {
	Remap()
	// the ISR read returns the last byte written to the simulated
	// command port (the OCW3 0x0B), whose bit 7 (LPT1) is clear, so
	// IRQ7 reads as not-in-service: a spurious IRQ7 on the master.
	Eoi(MasterBase + masterSpuriousIrq)
	require.NotEqual(t, uint8(ocwEoi), pci.Ports.Inb(MasterCmd))
}

func TestEoiRealIrqSendsCommand(t *testing.T) {
	Remap()
	Eoi(IrqTimer)
	require.Equal(t, uint8(ocwEoi), pci.Ports.Inb(MasterCmd))
}

func TestEoiSpuriousSlaveAcksMasterOnly(t *testing.T) {
	Remap()
	Eoi(SlaveBase + slaveSpuriousIrq)
	require.Equal(t, uint8(ocwEoi), pci.Ports.Inb(MasterCmd))
}

func TestEoiRealSlaveIrqAcksBoth(t *testing.T) {
	Remap()
	Eoi(IrqAtaFirst)
	require.Equal(t, uint8(ocwEoi), pci.Ports.Inb(SlaveCmd))
	require.Equal(t, uint8(ocwEoi), pci.Ports.Inb(MasterCmd))
}
