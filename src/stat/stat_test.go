package stat

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestFieldAccessorsRoundtrip(t *testing.T) {
	var st Stat_t
	st.Wdev(1)
	st.Wino(2)
	st.Wmode(3)
	st.Wsize(4)
	st.Wrdev(5)

	require.EqualValues(t, 3, st.Mode())
	require.EqualValues(t, 4, st.Size())
	require.EqualValues(t, 5, st.Rdev())
	require.EqualValues(t, 2, st.Rino())
}

func TestBytesCoversWholeStruct(t *testing.T) {
	var st Stat_t
	require.Equal(t, int(unsafe.Sizeof(st)), len(st.Bytes()))
}
