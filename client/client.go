package client

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/678uhb/this-space/addr"
	"github.com/678uhb/this-space/protocol"
	"github.com/678uhb/this-space/sock"
	"github.com/eapache/queue"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("client: not connected")
	ErrClosed       = errors.New("client: closed")
	ErrMissingPort  = errors.New("client: address has no port")
)

// Client is a synchronous framed connection. Writers and the reader are
// serialised separately, so one goroutine may Read while others Write.
type Client struct {
	cfg Config
	log *zap.Logger
	so  *sock.Socket

	wmu    sync.Mutex
	batch  *batcher
	closed bool

	rmu    sync.Mutex
	frames *protocol.FrameReader
	// 批量帧一次解出多条，缓存在队列中逐条交给 Read
	inbox *queue.Queue
}

// Dial resolves cfg.Address and connects within cfg.DialTimeout.
func Dial(cfg Config) (*Client, error) {
	cfg.normalize()
	lg := cfg.Logger.Named("client")

	a, err := addr.Parse(cfg.Address)
	if err != nil {
		return nil, err
	}
	if !a.HasPort {
		return nil, ErrMissingPort
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	ip, err := addr.ResolveIPv4(ctx, nil, a.Host)
	cancel()
	if err != nil {
		return nil, err
	}
	so, err := sock.DialIP(ip, a.Port, max(0, cfg.DialTimeout-time.Since(start)))
	if err != nil {
		return nil, err
	}
	if !so.IsConnected() {
		so.Close()
		lg.Debug("dial timed out", zap.String("address", cfg.Address), zap.String("ip", ip))
		return nil, ErrNotConnected
	}
	lg.Debug("connected", zap.String("address", cfg.Address), zap.Int("fd", so.Fd()))
	return &Client{
		cfg:    cfg,
		log:    lg,
		so:     so,
		batch:  newBatcher(cfg.BatchBytes, cfg.BatchMsgs),
		frames: protocol.NewFrameReader(so, cfg.MaxPayload),
		inbox:  queue.New(),
	}, nil
}

// Write sends one frame immediately, ahead of anything still queued.
func (c *Client) Write(api uint16, msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return ErrClosed
	}
	err := protocol.WriteFrame(c.so, protocol.Frame{API: api, Payload: msg}, c.cfg.Compress, c.cfg.WriteTimeout)
	if err != nil {
		c.log.Debug("write failed", zap.Uint16("api", api), zap.Error(err))
	}
	return err
}

// Queue adds a message to the pending batch and sends the batch once
// BatchBytes or BatchMsgs is reached. A batch never grows past MaxPayload
// before compression; the pending batch is sent first when msg would not fit.
func (c *Client) Queue(api uint16, msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return ErrClosed
	}
	entry := protocol.BatchEntrySize(len(msg))
	if entry+binary.MaxVarintLen64 > c.cfg.MaxPayload {
		return protocol.ErrTooLarge
	}
	if c.batch.size()+entry+binary.MaxVarintLen64 > c.cfg.MaxPayload {
		if err := c.flushLocked(); err != nil {
			return err
		}
	}
	if c.batch.add(api, msg) {
		return c.flushLocked()
	}
	return nil
}

// Flush sends every queued message as a single batch frame.
func (c *Client) Flush() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.flushLocked()
}

func (c *Client) flushLocked() error {
	if c.batch.len() == 0 {
		return nil
	}
	frames := c.batch.take()
	err := protocol.WriteBatch(c.so, frames, c.cfg.WriteTimeout)
	if err != nil {
		c.log.Debug("flush failed", zap.Int("msgs", len(frames)), zap.Error(err))
	}
	return err
}

// Read returns the next message, waiting up to deadline for one wire frame.
// It fails with protocol.ErrTimeout or protocol.ErrClosed. After ErrTimeout
// the bytes of a partly received frame are kept and the next Read resumes it.
func (c *Client) Read(deadline time.Duration) (protocol.Frame, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	if c.inbox.Length() == 0 {
		err := c.frames.Read(deadline, func(f protocol.Frame) error {
			f.Payload = append([]byte(nil), f.Payload...)
			c.inbox.Add(f)
			return nil
		})
		if err != nil {
			return protocol.Frame{}, err
		}
		if c.inbox.Length() == 0 {
			// 空批次
			return protocol.Frame{}, protocol.ErrTimeout
		}
	}
	return c.inbox.Remove().(protocol.Frame), nil
}

// Close flushes queued messages best effort and closes the socket. It waits
// for an in-flight Read to return.
func (c *Client) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.flushLocked()

	c.rmu.Lock()
	defer c.rmu.Unlock()
	return c.so.Close()
}
