package defs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStringsAreDistinctAndNamed(t *testing.T) {
	cases := map[Err_t]string{
		EFAULT:       "bad address",
		EINVAL:       "invalid argument",
		ENOMEM:       "out of memory",
		EBADF:        "bad file descriptor",
		ECHILD:       "no child processes",
		ENAMETOOLONG: "name too long",
		EAGAIN:       "resource temporarily unavailable",
		ENODEV:       "no such device",
		EIO:          "i/o error",
		ESRCH:        "no such process",
		ENOSYS:       "function not implemented",
		ENOENT:       "no such file or directory",
		EEXIST:       "file exists",
		EROFS:        "read-only file system",
	}
	for code, msg := range cases {
		require.Equal(t, msg, code.Error())
	}
}

func TestUnknownErrorCodeHasFallbackMessage(t *testing.T) {
	require.Equal(t, "unknown error", Err_t(999).Error())
}
