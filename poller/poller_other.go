//go:build !linux && !darwin

package poller

// New 在不支持的平台返回占位错误，保证编译通过
func New() (Poller, error) { return nil, ErrPlatformNotSupported }
