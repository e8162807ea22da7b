package fd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defs"
	"fdops"
	"ustr"
)

// nopFops is a minimal fdops.Fdops_i double for tests that only need to
// track whether Close/Reopen ran.
type nopFops struct {
	closed   bool
	reopened bool
	reopenErr defs.Err_t
}

func (n *nopFops) Close() defs.Err_t {
	n.closed = true
	return 0
}
func (n *nopFops) Reopen() defs.Err_t {
	n.reopened = true
	return n.reopenErr
}
func (n *nopFops) Read(fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (n *nopFops) Write(fdops.Userio_i) (int, defs.Err_t) { return 0, 0 }
func (n *nopFops) Pollcheck(events defs.Ready_t) (defs.Ready_t, defs.Err_t) {
	return 0, 0
}

func TestCopyfdReopensAndClonesFields(t *testing.T) {
	ops := &nopFops{}
	fd := &Fd_t{Fops: ops, Perms: FD_READ}

	nfd, err := Copyfd(fd)
	require.Zero(t, err)
	require.True(t, ops.reopened)
	require.Equal(t, fd.Perms, nfd.Perms)
}

func TestCopyfdPropagatesReopenError(t *testing.T) {
	ops := &nopFops{reopenErr: -defs.EBADF}
	fd := &Fd_t{Fops: ops}

	_, err := Copyfd(fd)
	require.Equal(t, -defs.EBADF, err)
}

func TestClosePanicOnFailure(t *testing.T) {
	ops := &closeFailFops{}
	require.Panics(t, func() { Close_panic(&Fd_t{Fops: ops}) })
}

type closeFailFops struct{ nopFops }

func (c *closeFailFops) Close() defs.Err_t { return -defs.EIO }

func TestFullpathKeepsAbsolutePathsAsIs(t *testing.T) {
	cwd := MkRootCwd(nil)
	cwd.Path = ustr.FromStr("/home")

	got := cwd.Fullpath(ustr.FromStr("/etc/init"))
	require.Equal(t, "/etc/init", got.String())
}

func TestFullpathJoinsRelativePaths(t *testing.T) {
	cwd := MkRootCwd(nil)
	cwd.Path = ustr.FromStr("/home")

	got := cwd.Fullpath(ustr.FromStr("init"))
	require.Equal(t, "/home/init", got.String())
}

func TestCanonicalpathCollapsesDotAndDotDot(t *testing.T) {
	cwd := MkRootCwd(nil)
	cwd.Path = ustr.FromStr("/a/b")

	got := cwd.Canonicalpath(ustr.FromStr("../c/./d"))
	require.Equal(t, "/a/c/d", got.String())
}

func TestCanonicalpathOfRootIsRoot(t *testing.T) {
	cwd := MkRootCwd(nil)
	cwd.Path = ustr.MkUstrRoot()

	got := cwd.Canonicalpath(ustr.FromStr("."))
	require.Equal(t, "/", got.String())
}
