package netutil

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Class is the retry category of an OS error code.
type Class uint8

const (
	// Fatal ends the current attempt.
	Fatal Class = iota
	// Retryable means the operation should be attempted again once the
	// descriptor is ready.
	Retryable
)

func (c Class) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "fatal"
}

// Classify maps a platform error code onto {Retryable, Fatal}.
func Classify(errno unix.Errno) Class {
	// EWOULDBLOCK aliases EAGAIN on every supported platform.
	switch errno {
	case unix.EAGAIN, unix.EINTR, unix.EINPROGRESS, unix.EALREADY, unix.EISCONN:
		return Retryable
	}
	return Fatal
}

// IsRetryable unwraps err to an errno and classifies it. Non-errno errors are fatal.
func IsRetryable(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return Classify(errno) == Retryable
}
