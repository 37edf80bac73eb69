package sock

import (
	"bytes"
	"math"
	"runtime"
	"time"

	"github.com/678uhb/this-space/addr"
	"github.com/678uhb/this-space/internal/netutil"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Forever is a deadline that never elapses.
const Forever time.Duration = math.MaxInt64

const (
	recvChunk  = 4096
	maxBackoff = 100 * time.Millisecond
)

// Socket is an active TCP/IPv4 endpoint whose operations are bounded by a
// deadline. Deadline expiry is never reported as an error: operations return
// what they managed to transfer and callers compare lengths or check
// IsConnected. A Socket is not safe for concurrent use.
type Socket struct {
	Handle
	remoteIP   string
	remotePort uint16
}

func NewSocket() *Socket {
	s := &Socket{Handle: newHandle()}
	runtime.SetFinalizer(s, (*Socket).Close)
	return s
}

// Dial parses "host:port", connects, and returns the socket even when the
// deadline elapsed before the connection was established.
func Dial(hostport string, deadline time.Duration) (*Socket, error) {
	s := NewSocket()
	if err := s.SetAddr(hostport); err != nil {
		return nil, err
	}
	if err := s.Connect(deadline); err != nil {
		return nil, err
	}
	return s, nil
}

func DialIP(ip string, port uint16, deadline time.Duration) (*Socket, error) {
	s := NewSocket()
	if err := s.ConnectTo(ip, port, deadline); err != nil {
		return nil, err
	}
	return s, nil
}

// SetAddr sets the remote endpoint from a "host[:port]" string. Without a
// port the previously configured one is kept.
func (s *Socket) SetAddr(hostport string) error {
	a, err := addr.Parse(hostport)
	if err != nil {
		return err
	}
	s.remoteIP = a.Host
	if a.HasPort {
		s.remotePort = a.Port
	}
	return nil
}

func (s *Socket) SetPort(port uint16) *Socket {
	s.remotePort = port
	return s
}

func (s *Socket) RemoteIP() string { return s.remoteIP }

func (s *Socket) RemotePort() uint16 { return s.remotePort }

func (s *Socket) ConnectTo(ip string, port uint16, deadline time.Duration) error {
	s.remoteIP, s.remotePort = ip, port
	return s.Connect(deadline)
}

// Connect replaces any held descriptor with a fresh non-blocking one and
// tries to connect until it succeeds or the deadline elapses. A nil error
// with IsConnected() == false means the deadline ran out.
func (s *Socket) Connect(deadline time.Duration) error {
	if s.remoteIP == "" || s.remotePort == 0 {
		return ErrAddressUnset
	}
	sa, err := netutil.SockaddrInet4(s.remoteIP, s.remotePort)
	if err != nil {
		return ErrNotIPv4
	}
	if err := s.reopen(); err != nil {
		return err
	}
	b := netutil.StartBudget(deadline)
	for i := 0; b.Attempt(i); i++ {
		err := unix.Connect(s.fd, sa)
		if err == nil || err == unix.EISCONN {
			s.connected()
			return nil
		}
		if netutil.IsRetryable(err) {
			if s.IsConnected() {
				s.connected()
				return nil
			}
			s.waitFor(Write, b.Remaining())
			soerr := netutil.SockError(s.fd)
			if soerr == 0 {
				if s.IsConnected() {
					s.connected()
					return nil
				}
				continue
			}
			err = soerr
		}
		log().Debug("connect attempt failed",
			zap.String("ip", s.remoteIP), zap.Uint16("port", s.remotePort), zap.Error(err))
		if err := s.reopen(); err != nil {
			return err
		}
		if b.Expired() {
			break
		}
		time.Sleep(min(maxBackoff, b.Remaining()))
	}
	return nil
}

func (s *Socket) reopen() error {
	if err := s.open(); err != nil {
		return err
	}
	if err := s.SetBlocking(false); err != nil {
		s.Close()
		return err
	}
	return nil
}

func (s *Socket) connected() {
	_ = netutil.SetNoDelay(s.fd, true)
}

// IsConnected peeks one byte without consuming it. Having no data to read is
// optimistic: the socket counts as connected as long as it has a peer.
func (s *Socket) IsConnected() bool {
	if s.IsClosed() {
		return false
	}
	var b [1]byte
	for {
		n, _, err := unix.Recvfrom(s.fd, b[:], unix.MSG_PEEK|recvFlags)
		switch {
		case err == nil:
			return n > 0
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EINPROGRESS:
			return netutil.HasPeer(s.fd)
		default:
			return false
		}
	}
}

// Send writes p until it is fully sent, the peer stops accepting bytes, a
// fatal error occurs or the deadline elapses. It returns the number of bytes
// sent, which is less than len(p) on any of the early exits.
func (s *Socket) Send(p []byte, deadline time.Duration) int {
	if s.IsClosed() {
		return 0
	}
	sent := 0
	b := netutil.StartBudget(deadline)
	for i := 0; sent < len(p) && b.Attempt(i); i++ {
		n, err := unix.SendmsgN(s.fd, p[sent:], nil, nil, sendFlags)
		if err != nil {
			if netutil.IsRetryable(err) {
				s.waitFor(Write, b.Remaining())
				continue
			}
			log().Debug("send failed", zap.Int("fd", s.fd), zap.Error(err))
			break
		}
		if n == 0 {
			break
		}
		sent += n
	}
	return sent
}

// Recv accumulates everything readable until the peer closes, an error
// occurs or the deadline elapses.
func (s *Socket) Recv(deadline time.Duration) []byte {
	return s.recv(-1, deadline)
}

// RecvN is Recv that also stops once n bytes have been collected.
func (s *Socket) RecvN(n int, deadline time.Duration) []byte {
	if n <= 0 {
		return []byte{}
	}
	return s.recv(n, deadline)
}

func (s *Socket) recv(limit int, deadline time.Duration) []byte {
	var data []byte
	if s.IsClosed() {
		return data
	}
	bufLen := recvChunk
	if limit > 0 {
		data = make([]byte, 0, limit)
		bufLen = min(limit, recvChunk)
	}
	buf := make([]byte, bufLen)
	b := netutil.StartBudget(deadline)
	for i := 0; (limit < 0 || len(data) < limit) && b.Attempt(i); i++ {
		want := len(buf)
		if limit > 0 {
			want = min(want, limit-len(data))
		}
		n, ok := s.read(buf[:want], b)
		if !ok {
			break
		}
		data = append(data, buf[:n]...)
	}
	return data
}

// RecvUntil reads until the collected bytes end with delim, the peer closes,
// an error occurs or the deadline elapses. Only the bytes that can still
// complete a match are requested, so nothing past the delimiter is consumed.
// An empty delim behaves like Recv.
func (s *Socket) RecvUntil(delim []byte, deadline time.Duration) []byte {
	if len(delim) == 0 {
		return s.Recv(deadline)
	}
	var data []byte
	if s.IsClosed() {
		return data
	}
	buf := make([]byte, len(delim))
	want := len(delim)
	b := netutil.StartBudget(deadline)
	for i := 0; !bytes.HasSuffix(data, delim) && b.Attempt(i); i++ {
		n, ok := s.read(buf[:want], b)
		if !ok {
			break
		}
		data = append(data, buf[:n]...)
		want = len(delim) - overlap(data, delim)
		if want == 0 {
			want = len(delim)
		}
	}
	return data
}

// read performs one non-blocking read. A retryable condition waits for
// readability and reports zero bytes with ok set; EOF and fatal errors
// clear ok.
func (s *Socket) read(p []byte, b netutil.Budget) (n int, ok bool) {
	n, _, err := unix.Recvfrom(s.fd, p, recvFlags)
	if err != nil {
		if netutil.IsRetryable(err) {
			s.waitFor(Read, b.Remaining())
			return 0, true
		}
		log().Debug("recv failed", zap.Int("fd", s.fd), zap.Error(err))
		return 0, false
	}
	return n, n > 0
}

// waitFor blocks on a detector scoped to this call until s is ready for in
// or the timeout elapses.
func (s *Socket) waitFor(in Interest, timeout time.Duration) {
	d := NewDetector()
	d.Add(s, in)
	if _, err := d.Wait(timeout); err != nil {
		log().Debug("wait failed", zap.Int("fd", s.fd), zap.Error(err))
	}
}

// overlap returns the length of the longest suffix of data that is a prefix
// of delim. Only the last len(delim) bytes of data are examined.
func overlap(data, delim []byte) int {
	for k := min(len(delim), len(data)); k > 0; k-- {
		if bytes.Equal(data[len(data)-k:], delim[:k]) {
			return k
		}
	}
	return 0
}

func (s *Socket) SetNoDelay(enable bool) error {
	if s.IsClosed() {
		return ErrClosed
	}
	return netutil.SetNoDelay(s.fd, enable)
}

func (s *Socket) SetReadBuffer(n int) error {
	if s.IsClosed() {
		return ErrClosed
	}
	return netutil.SetRecvBuf(s.fd, n)
}

func (s *Socket) SetWriteBuffer(n int) error {
	if s.IsClosed() {
		return ErrClosed
	}
	return netutil.SetSendBuf(s.fd, n)
}

func (s *Socket) kind() Kind { return KindSocket }

func (s *Socket) handle() *Handle { return &s.Handle }
