// Package poller is the OS readiness backend: a short-lived set of
// descriptors polled once for readability and writability.
package poller

import (
	"errors"
	"math"
	"time"
)

// FD 表示文件描述符。
type FD = int

var ErrPlatformNotSupported = errors.New("poller: platform not supported (requires epoll or kqueue)")

// Event reports one descriptor that became actionable. Error and hang-up
// conditions are folded into whichever directions the descriptor was
// registered for, so the owner's next read or write observes them.
type Event struct {
	FD       FD
	Readable bool
	Writable bool
}

// Poller 提供注册/单次等待。
// Registrations live until Close; a Poller is not safe for concurrent use.
type Poller interface {
	Register(fd FD, readable, writable bool) error
	// Wait blocks until at least one registered descriptor is ready or the
	// timeout elapses. EINTR is retried with the remaining time. A zero
	// timeout performs exactly one non-blocking poll.
	Wait(timeout time.Duration) ([]Event, error)
	Close() error
}

type interest struct {
	readable bool
	writable bool
}

// maxTimeout is the longest wait expressible in milliseconds as an int32;
// anything beyond it blocks indefinitely.
const maxTimeout = time.Duration(math.MaxInt32) * time.Millisecond

// msec rounds d up to whole milliseconds so a sub-millisecond remainder
// still sleeps instead of spinning.
func msec(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	if d >= maxTimeout {
		return -1
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
