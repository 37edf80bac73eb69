//go:build linux

package sock

import "golang.org/x/sys/unix"

const (
	// MSG_NOSIGNAL keeps a write to a reset peer from raising SIGPIPE.
	sendFlags = unix.MSG_NOSIGNAL | unix.MSG_DONTWAIT
	recvFlags = unix.MSG_DONTWAIT
)

func sysSocket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}

// sysAccept 返回的 fd 已是非阻塞
func sysAccept(lfd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}
