package caller

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistinctReturnsFalseWhenDisabled(t *testing.T) {
	var dc Distinct_caller_t
	ok, _ := dc.Distinct()
	require.False(t, ok)
	require.Zero(t, dc.Len())
}

func TestDistinctReportsFirstCallThenDedupes(t *testing.T) {
	dc := Distinct_caller_t{Enabled: true}

	first, trace := dc.Distinct()
	require.True(t, first)
	require.NotEmpty(t, trace)
	require.Equal(t, 1, dc.Len())

	second, _ := dc.Distinct()
	require.False(t, second)
	require.Equal(t, 1, dc.Len())
}

func TestDistinctSkipsWhitelistedCaller(t *testing.T) {
	dc := Distinct_caller_t{
		Enabled: true,
		Whitel:  map[string]bool{"caller.callWhitelisted": true},
	}

	ok, _ := callWhitelisted(&dc)
	require.False(t, ok)
	// the chain is recorded before the whitelist is consulted
	require.Equal(t, 1, dc.Len())
}

// callWhitelisted reaches Distinct through distinctFrom: Distinct's
// trace starts at its caller's caller, so this is the first frame the
// whitelist check sees.
func callWhitelisted(dc *Distinct_caller_t) (bool, string) {
	return distinctFrom(dc)
}

func distinctFrom(dc *Distinct_caller_t) (bool, string) {
	return dc.Distinct()
}
