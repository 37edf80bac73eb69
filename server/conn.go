package server

import (
	"sync"

	"github.com/678uhb/this-space/addr"
	"github.com/678uhb/this-space/internal/ring"
	"github.com/678uhb/this-space/protocol"
	"github.com/678uhb/this-space/sock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const initialRing = 4 << 10

// Conn is the application's view of one accepted connection. Write and
// Close may be called from any goroutine.
type Conn struct {
	ID   uuid.UUID
	Data any

	srv *Server
	so  *sock.Socket
	rx  *ring.Buffer
	prs protocol.Parser

	mu      sync.Mutex
	tx      *ring.Buffer
	scratch []byte
	closing bool
	closed  bool
}

func newConn(srv *Server, so *sock.Socket) *Conn {
	cfg := &srv.cfg
	return &Conn{
		ID:  uuid.New(),
		srv: srv,
		so:  so,
		rx:  ring.New(min(initialRing, cfg.RxRingSize), cfg.RxRingSize),
		tx:  ring.New(min(initialRing, cfg.TxRingSize), cfg.TxRingSize),
		prs: protocol.Parser{MaxPayload: cfg.MaxPayload},
	}
}

// Write encodes one frame into the send buffer. The loop flushes it once the
// socket is writable. It fails with ring.ErrTooLarge when the buffer cannot
// hold the frame.
func (c *Conn) Write(api uint16, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing || c.closed {
		return ErrConnClosed
	}
	var err error
	c.scratch, err = protocol.Encoder{}.Encode(c.scratch[:0], protocol.Frame{API: api, Payload: msg}, c.srv.cfg.Compress)
	if err != nil {
		return err
	}
	if _, err = c.tx.Write(c.scratch); err != nil {
		c.srv.log.Debug("conn write", zap.Stringer("conn", c.ID), zap.Int("pending", c.tx.Len()), zap.Error(err))
	}
	return err
}

// Close asks the loop to close the connection once pending writes drain.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	return nil
}

// RemoteAddr is the peer's "ip:port".
func (c *Conn) RemoteAddr() string {
	return addr.Addr{Host: c.so.RemoteIP(), Port: c.so.RemotePort(), HasPort: true}.String()
}
