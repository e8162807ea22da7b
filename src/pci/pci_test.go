package pci

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveBarUsesLegacyDefaultsWhenZero(t *testing.T) {
	b := ResolveBar(0, 0, true)
	require.Equal(t, Bar_t{Cmd: PrimaryCmdDefault, Ctl: PrimaryCtlDefault}, b)

	b = ResolveBar(0, 0, false)
	require.Equal(t, Bar_t{Cmd: SecondaryCmdDefault, Ctl: SecondaryCtlDefault}, b)
}

func TestResolveBarPrefersNonzeroValues(t *testing.T) {
	b := ResolveBar(0x300, 0x304, true)
	require.Equal(t, Bar_t{Cmd: 0x300, Ctl: 0x304}, b)
}

func TestResolveBarMixesDefaultsAndOverrides(t *testing.T) {
	b := ResolveBar(0x300, 0, true)
	require.Equal(t, Bar_t{Cmd: 0x300, Ctl: PrimaryCtlDefault}, b)
}
