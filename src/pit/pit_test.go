package pit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pci"
)

func TestInitProgramsReloadCount(t *testing.T) {
	Init(100)
	require.Equal(t, uint8(mode2LobyteHibyteCh0), pci.Ports.Inb(cmdPort))

	// The simulated port space addresses channel0Data by port number
	// alone, so the hibyte write is the last thing observable there;
	// it still proves Init drove the reload sequence.
	reload := uint16(baseFreq / 100)
	hi := pci.Ports.Inb(channel0Data)
	require.Equal(t, uint8(reload>>8), hi)
}

func TestTickAdvancesCounterAndReturnsMs(t *testing.T) {
	Init(100)
	require.Zero(t, Pit.Ticks())

	ms := Pit.Tick()
	require.Equal(t, 10, ms)
	require.Equal(t, uint64(1), Pit.Ticks())

	Pit.Tick()
	require.Equal(t, uint64(2), Pit.Ticks())
}

func TestInitDefaultsInvalidHz(t *testing.T) {
	Init(0)
	require.Equal(t, 100, Pit.Hz())
}
