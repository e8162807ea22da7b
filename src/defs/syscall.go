package defs

// Syscall indices, taken verbatim from the source ABI (register A holds the
// index, B/C/D hold the arguments, A holds the return value on exit).
const (
	SYS_FORK   = 2
	SYS_READ   = 3
	SYS_WRITE  = 4
	SYS_OPEN   = 5
	SYS_CLOSE  = 6
	SYS_WAIT   = 7
	SYS_UNLINK = 10
	SYS_EXECVE = 11
	SYS_GETPID = 20
	SYS_YIELD  = 158
)

// Open flag bitfield.
const (
	O_NONE   = 0
	O_RDONLY = 1
	O_WRONLY = 2
	O_RDWR   = 3
	O_APPEND = 4
	O_TRUNC  = 8
)

// Poll event bitfield. The low three bits (the "requestable mask") may be
// set in pollfd.events; pollerr/pollhup/pollnval are return-only.
const (
	POLLNONE Ready_t = 0
	POLLIN   Ready_t = 1
	POLLPRI  Ready_t = 2
	POLLOUT  Ready_t = 4
	POLLMASK Ready_t = POLLIN | POLLPRI | POLLOUT

	POLLERR  Ready_t = 8
	POLLHUP  Ready_t = 16
	POLLNVAL Ready_t = 32
)

// Ready_t is a set of poll event bits, shared by requests (events) and
// results (revents).
type Ready_t uint

// Pollfd_t mirrors the user-space pollfd layout: {int fd; events; revents}.
type Pollfd_t struct {
	Fd      int32
	Events  Ready_t
	Revents Ready_t
}
