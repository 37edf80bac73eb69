package sock

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/678uhb/this-space/addr"
	"github.com/678uhb/this-space/internal/netutil"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const defaultBacklog = 1024

// ListenConfig describes a passive endpoint. Address is "host[:port]" or
// ":port"; an empty Address binds all interfaces on an ephemeral port.
type ListenConfig struct {
	Address   string
	Backlog   int
	ReusePort bool
}

// Listener is a bound, listening, non-blocking TCP/IPv4 endpoint.
type Listener struct {
	Handle
	port uint16
}

// Listen binds 0.0.0.0:port. Port 0 picks an ephemeral port, see Port.
func Listen(port uint16) (*Listener, error) {
	return ListenConfig{Address: fmt.Sprintf("0.0.0.0:%d", port)}.Listen()
}

// Listen opens, binds and listens. There is no partially initialised
// Listener: any failure releases the descriptor and returns the error.
func (lc ListenConfig) Listen() (*Listener, error) {
	ip, port := "0.0.0.0", uint16(0)
	if lc.Address != "" {
		hostport := lc.Address
		if strings.HasPrefix(strings.TrimSpace(hostport), ":") {
			hostport = ip + strings.TrimSpace(hostport)
		}
		a, err := addr.Parse(hostport)
		if err != nil {
			return nil, err
		}
		ip, port = a.Host, a.Port
	}
	sa, err := netutil.SockaddrInet4(ip, port)
	if err != nil {
		return nil, fmt.Errorf("sock: listen %q: %w", lc.Address, err)
	}
	backlog := lc.Backlog
	if backlog <= 0 {
		backlog = defaultBacklog
	}

	l := &Listener{Handle: newHandle()}
	if err := l.open(); err != nil {
		return nil, err
	}
	if err := l.setup(sa, backlog, lc.ReusePort); err != nil {
		l.Close()
		return nil, err
	}
	runtime.SetFinalizer(l, (*Listener).Close)
	log().Debug("listening", zap.Int("fd", l.fd), zap.Uint16("port", l.port))
	return l, nil
}

func (l *Listener) setup(sa *unix.SockaddrInet4, backlog int, reusePort bool) error {
	if err := netutil.SetReuseAddr(l.fd, true); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	if reusePort {
		if err := netutil.SetReusePort(l.fd, true); err != nil {
			return os.NewSyscallError("setsockopt", err)
		}
	}
	if err := unix.Bind(l.fd, sa); err != nil {
		return os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(l.fd, backlog); err != nil {
		return os.NewSyscallError("listen", err)
	}
	if err := l.SetBlocking(false); err != nil {
		return err
	}
	port, err := netutil.LocalPort(l.fd)
	if err != nil {
		return os.NewSyscallError("getsockname", err)
	}
	l.port = port
	return nil
}

// Port is the port the listener is bound to.
func (l *Listener) Port() uint16 { return l.port }

// Accept waits up to deadline for an incoming connection and returns it as a
// connected, non-blocking Socket. It returns nil when the deadline elapses
// or the listener fails.
func (l *Listener) Accept(deadline time.Duration) *Socket {
	if l.IsClosed() {
		return nil
	}
	b := netutil.StartBudget(deadline)
	for i := 0; b.Attempt(i); i++ {
		fd, sa, err := sysAccept(l.fd)
		if err == nil {
			s := NewSocket()
			s.adopt(fd, false)
			s.remoteIP, s.remotePort = netutil.Inet4String(sa)
			s.connected()
			return s
		}
		if !netutil.IsRetryable(err) && err != unix.ECONNABORTED {
			log().Debug("accept failed", zap.Int("fd", l.fd), zap.Error(err))
			return nil
		}
		d := NewDetector()
		d.Add(l, Read)
		if _, err := d.Wait(b.Remaining()); err != nil {
			log().Debug("wait failed", zap.Int("fd", l.fd), zap.Error(err))
		}
	}
	return nil
}

func (l *Listener) kind() Kind { return KindListener }

func (l *Listener) handle() *Handle { return &l.Handle }
