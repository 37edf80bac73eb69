package protocol

import (
	"time"

	"github.com/678uhb/this-space/internal/netutil"
	"github.com/678uhb/this-space/internal/ring"
	"github.com/678uhb/this-space/sock"
)

const initialBuf = 4 << 10

// WriteFrame encodes f and sends it on s within deadline.
func WriteFrame(s *sock.Socket, f Frame, compressed bool, deadline time.Duration) error {
	b, err := Encoder{}.Encode(nil, f, compressed)
	if err != nil {
		return err
	}
	return WriteRaw(s, b, deadline)
}

// WriteBatch sends frames as a single batched wire frame.
func WriteBatch(s *sock.Socket, frames []Frame, deadline time.Duration) error {
	b, err := Encoder{}.EncodeBatch(nil, frames)
	if err != nil {
		return err
	}
	return WriteRaw(s, b, deadline)
}

// WriteRaw sends already encoded bytes and reports ErrShortWrite when the
// deadline cuts them off.
func WriteRaw(s *sock.Socket, b []byte, deadline time.Duration) error {
	if n := s.Send(b, deadline); n < len(b) {
		return ErrShortWrite
	}
	return nil
}

// FrameReader reads wire frames from a socket one at a time. Bytes of a
// frame cut short by the deadline stay buffered, so Read can be called
// again after ErrTimeout without losing the stream position.
type FrameReader struct {
	s   *sock.Socket
	prs Parser
	buf *ring.Buffer
}

func NewFrameReader(s *sock.Socket, maxPayload int) *FrameReader {
	limit := MaxFrameSize(maxPayload)
	return &FrameReader{
		s:   s,
		prs: Parser{MaxPayload: maxPayload},
		buf: ring.New(min(initialBuf, limit), limit),
	}
}

// Read completes exactly one wire frame within deadline and calls fn for
// every message it carries. Payloads are only valid during fn. It never
// reads past the end of the frame.
func (r *FrameReader) Read(deadline time.Duration, fn func(Frame) error) error {
	b := netutil.StartBudget(deadline)
	for {
		pending := r.buf.Peek(r.buf.Len())
		need, err := r.prs.missing(pending)
		if err != nil {
			return err
		}
		if need == 0 {
			n, err := r.prs.Parse(pending, fn)
			r.buf.Discard(n)
			return err
		}
		got := r.s.RecvN(need, b.Remaining())
		if _, err := r.buf.Write(got); err != nil {
			return err
		}
		if len(got) < need {
			if !r.s.IsConnected() {
				return ErrClosed
			}
			return ErrTimeout
		}
	}
}

// Buffered is the number of bytes held from an incomplete frame.
func (r *FrameReader) Buffered() int { return r.buf.Len() }

// ReadFrames reads exactly one wire frame from s and calls fn for every
// message it carries. All reads share deadline. A partial frame is dropped
// on error; use a FrameReader to resume after ErrTimeout.
func ReadFrames(s *sock.Socket, deadline time.Duration, maxPayload int, fn func(Frame) error) error {
	return NewFrameReader(s, maxPayload).Read(deadline, fn)
}
