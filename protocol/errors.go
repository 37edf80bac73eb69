package protocol

import "errors"

var (
	// 消息超过 MaxPayload
	ErrTooLarge = errors.New("protocol: frame too large")
	// Send 在截止时间内没有写完整帧
	ErrShortWrite = errors.New("protocol: short write")
	// 截止时间到达时帧仍不完整
	ErrTimeout = errors.New("protocol: timeout")
	// 对端已关闭
	ErrClosed = errors.New("protocol: connection closed")
)
