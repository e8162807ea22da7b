package defs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMkdevThenUnmkdevRoundtrips(t *testing.T) {
	d := Mkdev(3, 7)
	maj, min := Unmkdev(d)
	require.Equal(t, 3, maj)
	require.Equal(t, 7, min)
}

func TestMkdevPanicsOnMinorOutOfRange(t *testing.T) {
	require.Panics(t, func() { Mkdev(1, 0x100) })
}
