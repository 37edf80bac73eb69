package client

import (
	"time"

	"go.uber.org/zap"
)

type Config struct {
	// Address "host:port"，host 可以是域名，解析为 IPv4
	Address      string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Compress     bool
	MaxPayload   int

	// Queue 的批量阈值，任一达到即发送
	BatchBytes int
	BatchMsgs  int

	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxPayload:   1 << 20,
		BatchBytes:   64 << 10,
		BatchMsgs:    16,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxPayload <= 0 {
		c.MaxPayload = d.MaxPayload
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = d.BatchBytes
	}
	if c.BatchMsgs <= 0 {
		c.BatchMsgs = d.BatchMsgs
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}
