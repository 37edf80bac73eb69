//go:build linux

package poller

import (
	"os"
	"time"

	"github.com/678uhb/this-space/internal/netutil"
	"golang.org/x/sys/unix"
)

type epollPoller struct {
	efd   int
	regs  map[FD]interest
	close bool
}

func New() (Poller, error) {
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &epollPoller{efd: efd, regs: make(map[FD]interest)}, nil
}

// Register 以水平触发方式注册；重复注册会合并关注的方向。
func (p *epollPoller) Register(fd FD, readable, writable bool) error {
	op := unix.EPOLL_CTL_ADD
	if old, ok := p.regs[fd]; ok {
		op = unix.EPOLL_CTL_MOD
		readable = readable || old.readable
		writable = writable || old.writable
	}
	var flag uint32
	if readable {
		flag |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if writable {
		flag |= unix.EPOLLOUT
	}
	ev := &unix.EpollEvent{Events: flag, Fd: int32(fd)}
	if err := unix.EpollCtl(p.efd, op, fd, ev); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	p.regs[fd] = interest{readable: readable, writable: writable}
	return nil
}

func (p *epollPoller) Wait(timeout time.Duration) ([]Event, error) {
	n := len(p.regs)
	if n == 0 {
		n = 1
	}
	events := make([]unix.EpollEvent, n)
	b := netutil.StartBudget(timeout)
	for {
		n, err := unix.EpollWait(p.efd, events, msec(b.Remaining()))
		if err != nil {
			if err == unix.EINTR {
				if b.Expired() {
					return nil, nil
				}
				continue
			}
			return nil, os.NewSyscallError("epoll_wait", err)
		}
		out := make([]Event, 0, n)
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)
			reg, ok := p.regs[fd]
			if !ok {
				continue
			}
			failed := ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
			e := Event{
				FD:       fd,
				Readable: reg.readable && (failed || ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0),
				Writable: reg.writable && (failed || ev.Events&unix.EPOLLOUT != 0),
			}
			if e.Readable || e.Writable {
				out = append(out, e)
			}
		}
		return out, nil
	}
}

func (p *epollPoller) Close() error {
	if p.close {
		return nil
	}
	p.close = true
	return unix.Close(p.efd)
}
