package ustr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsdotAndIsdotdot(t *testing.T) {
	require.True(t, FromStr(".").Isdot())
	require.False(t, FromStr("..").Isdot())
	require.True(t, FromStr("..").Isdotdot())
	require.False(t, FromStr(".").Isdotdot())
}

func TestEq(t *testing.T) {
	require.True(t, FromStr("init").Eq(FromStr("init")))
	require.False(t, FromStr("init").Eq(FromStr("sh")))
	require.False(t, FromStr("init").Eq(FromStr("init2")))
}

func TestExtendJoinsWithSlash(t *testing.T) {
	base := FromStr("bin")
	require.Equal(t, "bin/sh", base.Extend(FromStr("sh")).String())
	require.Equal(t, "bin/sh", base.ExtendStr("sh").String())
}

func TestIsAbsolute(t *testing.T) {
	require.True(t, FromStr("/init").IsAbsolute())
	require.False(t, FromStr("init").IsAbsolute())
	require.False(t, MkUstr().IsAbsolute())
}

func TestIndexByte(t *testing.T) {
	require.Equal(t, 3, FromStr("bin/sh").IndexByte('/'))
	require.Equal(t, -1, FromStr("bin").IndexByte('/'))
}

func TestMkUstrSliceTruncatesAtNul(t *testing.T) {
	buf := []byte("init\x00garbage")
	require.Equal(t, "init", MkUstrSlice(buf).String())
}

func TestMkUstrRootAndDot(t *testing.T) {
	require.Equal(t, "/", MkUstrRoot().String())
	require.Equal(t, ".", MkUstrDot().String())
	require.Equal(t, "..", DotDot.String())
}
