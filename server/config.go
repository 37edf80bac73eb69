package server

import (
	"time"

	"github.com/678uhb/this-space/protocol"
	"go.uber.org/zap"
)

// Handler receives connection lifecycle callbacks. All callbacks run on the
// server loop goroutine; a Frame's payload is only valid during OnMessage.
type Handler interface {
	OnOpen(c *Conn)
	OnMessage(c *Conn, f protocol.Frame)
	OnClose(c *Conn, err error)
}

type Config struct {
	// Address 监听地址，"host:port" 或 ":port"
	Address   string
	Backlog   int
	ReusePort bool

	// 每连接收发环形缓冲上限（字节）
	RxRingSize int
	TxRingSize int
	MaxPayload int

	// 单次 Wait 的最长等待，也是 Stop 和跨协程 Write 的响应上限
	PollInterval time.Duration
	Compress     bool

	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		Address:      ":0",
		Backlog:      1024,
		RxRingSize:   64 << 10,
		TxRingSize:   1 << 20,
		MaxPayload:   1 << 20,
		PollInterval: 10 * time.Millisecond,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.RxRingSize <= 0 {
		c.RxRingSize = d.RxRingSize
	}
	if c.TxRingSize <= 0 {
		c.TxRingSize = d.TxRingSize
	}
	if c.MaxPayload <= 0 {
		c.MaxPayload = d.MaxPayload
	}
	// 接收缓冲至少容纳一个最大帧
	c.RxRingSize = max(c.RxRingSize, protocol.MaxFrameSize(c.MaxPayload))
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}
