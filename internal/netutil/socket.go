package netutil

import (
	"errors"
	"net/netip"

	"golang.org/x/sys/unix"
)

var ErrNotIPv4 = errors.New("netutil: not an IPv4 address")

func SetNonblock(fd int, nonblock bool) error {
	return unix.SetNonblock(fd, nonblock)
}

func SetReusePort(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolInt(enable))
}

func SetReuseAddr(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolInt(enable))
}

func SetNoDelay(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolInt(enable))
}

func SetRecvBuf(fd int, n int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n)
}

func SetSendBuf(fd int, n int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, n)
}

// SockError reads and clears the pending SO_ERROR of fd.
func SockError(fd int) unix.Errno {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		if errno, ok := err.(unix.Errno); ok {
			return errno
		}
		return unix.EINVAL
	}
	return unix.Errno(v)
}

// HasPeer reports whether fd is an established stream with a remote end.
func HasPeer(fd int) bool {
	_, err := unix.Getpeername(fd)
	return err == nil
}

// SockaddrInet4 builds the IPv4 socket address for ip:port. IPv4-mapped
// IPv6 literals are accepted and unmapped.
func SockaddrInet4(ip string, port uint16) (*unix.SockaddrInet4, error) {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, err
	}
	a = a.Unmap()
	if !a.Is4() {
		return nil, ErrNotIPv4
	}
	return &unix.SockaddrInet4{Port: int(port), Addr: a.As4()}, nil
}

// Inet4String renders the address part of sa as dotted quad plus port.
func Inet4String(sa unix.Sockaddr) (string, uint16) {
	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		return netip.AddrFrom4(sa4.Addr).String(), uint16(sa4.Port)
	}
	return "", 0
}

// LocalPort returns the port fd is bound to.
func LocalPort(fd int) (uint16, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, err
	}
	_, port := Inet4String(sa)
	return port, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
