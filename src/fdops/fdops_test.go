package fdops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defs"
)

func TestSatisfiedWhenRequestedEventIsSet(t *testing.T) {
	pm := Pollmsg_t{Events: defs.POLLIN, Revents: defs.POLLIN}
	require.True(t, pm.Satisfied())
}

func TestNotSatisfiedWhenRevventsDontOverlapEvents(t *testing.T) {
	pm := Pollmsg_t{Events: defs.POLLIN, Revents: defs.POLLOUT}
	require.False(t, pm.Satisfied())
}

func TestNotSatisfiedWithNoRevents(t *testing.T) {
	pm := Pollmsg_t{Events: defs.POLLIN | defs.POLLOUT}
	require.False(t, pm.Satisfied())
}
