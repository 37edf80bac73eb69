package sock

import (
	"os"

	"github.com/678uhb/this-space/internal/netutil"
	"golang.org/x/sys/unix"
)

const closedFD = -1

// Handle owns exactly one native descriptor. The zero value is not usable;
// handles start closed and are opened by a Socket, a Listener or accept.
type Handle struct {
	fd       int
	blocking bool
}

func newHandle() Handle { return Handle{fd: closedFD, blocking: true} }

// open acquires a fresh TCP/IPv4 descriptor. Any descriptor already held is
// released first.
func (h *Handle) open() error {
	h.Close()
	fd, err := sysSocket()
	if err != nil {
		return os.NewSyscallError("socket", err)
	}
	h.fd = fd
	h.blocking = true
	return nil
}

// adopt takes ownership of an already open descriptor.
func (h *Handle) adopt(fd int, blocking bool) {
	h.Close()
	h.fd = fd
	h.blocking = blocking
}

// Fd exposes the raw descriptor. Ownership stays with the Handle.
func (h *Handle) Fd() int { return h.fd }

func (h *Handle) IsClosed() bool { return h.fd == closedFD }

func (h *Handle) IsBlocking() bool { return h.blocking }

// SetBlocking toggles the descriptor's blocking mode.
func (h *Handle) SetBlocking(blocking bool) error {
	if h.IsClosed() {
		return ErrClosed
	}
	if err := netutil.SetNonblock(h.fd, !blocking); err != nil {
		return os.NewSyscallError("fcntl", err)
	}
	h.blocking = blocking
	return nil
}

// Close releases the descriptor. Closing a closed handle is a no-op.
func (h *Handle) Close() error {
	if h.fd == closedFD {
		return nil
	}
	fd := h.fd
	h.fd = closedFD
	h.blocking = true
	if err := unix.Close(fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}
