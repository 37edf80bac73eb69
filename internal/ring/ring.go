package ring

import (
	"errors"
)

var ErrTooLarge = errors.New("ring: write too large")

// Buffer 是单线程使用的环形字节缓冲，容量按 2 的幂次增长直到上限。
// 调用方负责并发控制。
type Buffer struct {
	buf      []byte
	mask     int
	limit    int
	readPos  int
	writePos int
}

// New returns a buffer starting at capacity bytes (rounded up to a power of
// two) that grows on demand up to limit. A limit below the initial capacity
// disables growth.
func New(capacity, limit int) *Buffer {
	c := pow2(capacity)
	if limit < c {
		limit = c
	}
	return &Buffer{buf: make([]byte, c), mask: c - 1, limit: limit}
}

func pow2(n int) int {
	c := 1
	for c < n {
		c <<= 1
	}
	return c
}

func (b *Buffer) Cap() int { return len(b.buf) }

func (b *Buffer) Len() int { return b.writePos - b.readPos }

// Free is the number of bytes that can be written without exceeding the limit.
func (b *Buffer) Free() int { return b.limit - b.Len() }

// Write appends p, growing the ring when needed. It fails without writing
// anything when p does not fit under the limit.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) > b.Free() {
		return 0, ErrTooLarge
	}
	if need := b.Len() + len(p); need > b.Cap() {
		b.grow(need)
	}
	n := len(p)
	start := b.writePos & b.mask
	end := start + n
	if end <= len(b.buf) {
		copy(b.buf[start:end], p)
	} else {
		l := len(b.buf) - start
		copy(b.buf[start:], p[:l])
		copy(b.buf[:n-l], p[l:])
	}
	b.writePos += n
	return n, nil
}

func (b *Buffer) grow(need int) {
	c := min(pow2(need), pow2(b.limit))
	buf := make([]byte, c)
	n := copy(buf, b.Peek(b.Len()))
	b.buf, b.mask = buf, c-1
	b.readPos, b.writePos = 0, n
}

// Peek 读取最多 n 字节但不前进读指针。
// 连续区间直接返回内部切片视图，跨越边界时返回拷贝。
func (b *Buffer) Peek(n int) []byte {
	if n <= 0 {
		return nil
	}
	ln := b.Len()
	if n > ln {
		n = ln
	}
	start := b.readPos & b.mask
	end := start + n
	if end <= len(b.buf) {
		return b.buf[start:end]
	}
	buf := make([]byte, n)
	l := len(b.buf) - start
	copy(buf[:l], b.buf[start:])
	copy(buf[l:], b.buf[:n-l])
	return buf
}

// Discard 前进读指针。
func (b *Buffer) Discard(n int) int {
	ln := b.Len()
	if n > ln {
		n = ln
	}
	b.readPos += n
	if b.readPos == b.writePos {
		b.readPos, b.writePos = 0, 0
	}
	return n
}
