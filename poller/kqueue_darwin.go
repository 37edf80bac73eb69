//go:build darwin

package poller

import (
	"os"
	"time"

	"github.com/678uhb/this-space/internal/netutil"
	"golang.org/x/sys/unix"
)

type kqueuePoller struct {
	kq    int
	regs  map[FD]interest
	close bool
}

func New() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{kq: kq, regs: make(map[FD]interest)}, nil
}

func (p *kqueuePoller) Register(fd FD, readable, writable bool) error {
	old := p.regs[fd]
	var changes []unix.Kevent_t
	if readable && !old.readable {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD})
	}
	if writable && !old.writable {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD})
	}
	if len(changes) > 0 {
		if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
			return os.NewSyscallError("kevent", err)
		}
	}
	p.regs[fd] = interest{readable: readable || old.readable, writable: writable || old.writable}
	return nil
}

// Wait 合并同一 fd 的读/写过滤器事件，保持首次出现的顺序。
func (p *kqueuePoller) Wait(timeout time.Duration) ([]Event, error) {
	events := make([]unix.Kevent_t, 2*len(p.regs)+1)
	b := netutil.StartBudget(timeout)
	for {
		var ts *unix.Timespec
		if rem := b.Remaining(); rem < maxTimeout {
			t := unix.NsecToTimespec(int64(rem))
			ts = &t
		}
		n, err := unix.Kevent(p.kq, nil, events, ts)
		if err != nil {
			if err == unix.EINTR {
				if b.Expired() {
					return nil, nil
				}
				continue
			}
			return nil, os.NewSyscallError("kevent", err)
		}
		out := make([]Event, 0, n)
		pos := make(map[FD]int, n)
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Ident)
			reg, ok := p.regs[fd]
			if !ok {
				continue
			}
			failed := ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0
			idx, seen := pos[fd]
			if !seen {
				idx = len(out)
				pos[fd] = idx
				out = append(out, Event{FD: fd})
			}
			switch ev.Filter {
			case unix.EVFILT_READ:
				out[idx].Readable = reg.readable
				if failed {
					out[idx].Writable = reg.writable
				}
			case unix.EVFILT_WRITE:
				out[idx].Writable = reg.writable
				if failed {
					out[idx].Readable = reg.readable
				}
			}
		}
		return out, nil
	}
}

func (p *kqueuePoller) Close() error {
	if p.close {
		return nil
	}
	p.close = true
	return unix.Close(p.kq)
}
