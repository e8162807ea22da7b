package oommsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func drain() {
	for {
		select {
		case <-OomCh:
		default:
			return
		}
	}
}

func TestWarnDeliversMessageWhenChannelHasRoom(t *testing.T) {
	drain()
	Warn("fork", 4096)

	msg := <-OomCh
	require.Equal(t, "fork", msg.Where)
	require.Equal(t, 4096, msg.Need)
}

func TestWarnDoesNotBlockWhenChannelIsFull(t *testing.T) {
	drain()
	for i := 0; i < cap(OomCh); i++ {
		OomCh <- Oommsg_t{Where: "fill", Need: i}
	}

	require.NotPanics(t, func() { Warn("overflow", 1) })
	drain()
}
