package server

import (
	"github.com/678uhb/this-space/protocol"
	"github.com/678uhb/this-space/sock"
)

const readChunk = 4 << 10

// 以下方法只在 loop 协程调用，rx 与 parser 无需加锁。

func (c *Conn) interest() sock.Interest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx.Len() > 0 {
		return sock.ReadWrite
	}
	return sock.Read
}

// onReadable drains one read into rx and dispatches every complete frame.
// alive is false once the peer is gone or the stream is unusable.
func (c *Conn) onReadable() (alive bool, err error) {
	// 只读取 rx 剩余空间，未解析完的半帧不会被挤出
	free := c.rx.Free()
	if free == 0 {
		return false, protocol.ErrTooLarge
	}
	data := c.so.RecvN(min(free, readChunk), 0)
	if len(data) == 0 {
		// 空读：对端关闭或伪唤醒
		return c.so.IsConnected(), nil
	}
	if _, err := c.rx.Write(data); err != nil {
		return false, err
	}
	n, err := c.prs.Parse(c.rx.Peek(c.rx.Len()), func(f protocol.Frame) error {
		c.srv.h.OnMessage(c, f)
		return nil
	})
	c.rx.Discard(n)
	if err != nil {
		return false, err
	}
	return true, nil
}

// flush sends what the socket accepts right now and keeps the rest.
func (c *Conn) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx.Len() == 0 {
		return
	}
	n := c.so.Send(c.tx.Peek(c.tx.Len()), 0)
	c.tx.Discard(n)
}

func (c *Conn) drained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing && c.tx.Len() == 0
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
