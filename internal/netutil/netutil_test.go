package netutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		errno unix.Errno
		want  Class
	}{
		{unix.EAGAIN, Retryable},
		{unix.EWOULDBLOCK, Retryable},
		{unix.EINTR, Retryable},
		{unix.EINPROGRESS, Retryable},
		{unix.EALREADY, Retryable},
		{unix.EISCONN, Retryable},
		{unix.ECONNREFUSED, Fatal},
		{unix.ECONNRESET, Fatal},
		{unix.EPIPE, Fatal},
		{unix.EBADF, Fatal},
		{unix.ENOTCONN, Fatal},
		{unix.Errno(0), Fatal},
	}
	for _, c := range cases {
		if got := Classify(c.errno); got != c.want {
			t.Errorf("Classify(%v) = %v, want %v", c.errno, got, c.want)
		}
	}
}

func TestIsRetryableUnwraps(t *testing.T) {
	if !IsRetryable(os.NewSyscallError("recvfrom", unix.EAGAIN)) {
		t.Error("wrapped EAGAIN should be retryable")
	}
	if !IsRetryable(fmt.Errorf("connect: %w", unix.EINPROGRESS)) {
		t.Error("wrapped EINPROGRESS should be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("non-errno error must be fatal")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestBudget(t *testing.T) {
	b := StartBudget(0)
	if !b.Attempt(0) {
		t.Fatal("first attempt must always run")
	}
	if b.Remaining() != 0 {
		t.Fatalf("zero budget remaining = %v", b.Remaining())
	}
	time.Sleep(time.Millisecond)
	if b.Attempt(1) {
		t.Fatal("zero budget must allow exactly one attempt")
	}

	b = StartBudget(time.Hour)
	if b.Expired() || !b.Attempt(5) {
		t.Fatal("hour budget expired immediately")
	}
	if r := b.Remaining(); r <= 59*time.Minute {
		t.Fatalf("remaining = %v", r)
	}

	if StartBudget(-time.Second).Remaining() != 0 {
		t.Fatal("negative budget should clamp to zero")
	}
}

func TestSockaddrInet4(t *testing.T) {
	sa, err := SockaddrInet4("127.0.0.1", 8080)
	if err != nil {
		t.Fatal(err)
	}
	if sa.Port != 8080 || sa.Addr != [4]byte{127, 0, 0, 1} {
		t.Fatalf("unexpected sockaddr %+v", sa)
	}
	ip, port := Inet4String(sa)
	if ip != "127.0.0.1" || port != 8080 {
		t.Fatalf("Inet4String = %s:%d", ip, port)
	}
	if _, err := SockaddrInet4("::ffff:10.0.0.1", 1); err != nil {
		t.Fatalf("mapped address rejected: %v", err)
	}
	if _, err := SockaddrInet4("::1", 1); err != ErrNotIPv4 {
		t.Fatalf("want ErrNotIPv4, got %v", err)
	}
	if _, err := SockaddrInet4("not-an-ip", 1); err == nil {
		t.Fatal("expected parse error")
	}
}
