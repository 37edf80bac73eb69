package sock

import "errors"

var (
	// ErrAddressUnset 连接前未设置对端地址或端口
	ErrAddressUnset = errors.New("sock: remote address or port not set")

	// ErrNotIPv4 对端地址不是 IPv4 字面量
	ErrNotIPv4 = errors.New("sock: remote address is not an IPv4 literal")

	// ErrClosed 句柄已关闭
	ErrClosed = errors.New("sock: use of closed handle")
)
