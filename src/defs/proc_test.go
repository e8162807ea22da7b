package defs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcstatusString(t *testing.T) {
	require.Equal(t, "runnable", PROC_RUNNABLE.String())
	require.Equal(t, "active", PROC_ACTIVE.String())
	require.Equal(t, "sleeping", PROC_SLEEPING.String())
	require.Equal(t, "zombie", PROC_ZOMBIE.String())
	require.Equal(t, "invalid", PROC_INVALID.String())
}
