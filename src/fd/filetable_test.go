package fd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defs"
)

func TestOpenFileAssignsLowestUnusedKey(t *testing.T) {
	ft := &Filetable_t{tbl: map[int]*entry_t{}}
	k1 := ft.OpenFile(&Fd_t{Fops: &nopFops{}})
	k2 := ft.OpenFile(&Fd_t{Fops: &nopFops{}})
	require.Equal(t, 1, k1)
	require.Equal(t, 2, k2)
}

func TestGetReturnsBadFdForUnknownKey(t *testing.T) {
	ft := &Filetable_t{tbl: map[int]*entry_t{}}
	_, err := ft.Get(99)
	require.Equal(t, -defs.EBADF, err)
}

func TestCopyFileBumpsRefcountAndDelaysClose(t *testing.T) {
	ft := &Filetable_t{tbl: map[int]*entry_t{}}
	ops := &nopFops{}
	k := ft.OpenFile(&Fd_t{Fops: ops})
	require.Zero(t, ft.CopyFile(k))

	require.Zero(t, ft.CloseFile(k))
	require.False(t, ops.closed)
	_, err := ft.Get(k)
	require.Zero(t, err)

	require.Zero(t, ft.CloseFile(k))
	require.True(t, ops.closed)
	_, err = ft.Get(k)
	require.Equal(t, -defs.EBADF, err)
}

func TestCloseFileOnUnknownKeyFails(t *testing.T) {
	ft := &Filetable_t{tbl: map[int]*entry_t{}}
	require.Equal(t, -defs.EBADF, ft.CloseFile(5))
}

func TestCopyFileOnUnknownKeyFails(t *testing.T) {
	ft := &Filetable_t{tbl: map[int]*entry_t{}}
	require.Equal(t, -defs.EBADF, ft.CopyFile(5))
}
