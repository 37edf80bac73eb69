package ring

import (
	"bytes"
	"testing"
)

func TestWrapAround(t *testing.T) {
	b := New(8, 8)
	b.Write([]byte("abcdef"))
	if n := b.Discard(4); n != 4 {
		t.Fatalf("discard = %d", n)
	}
	if _, err := b.Write([]byte("ghijkl")); err != nil {
		t.Fatal(err)
	}
	if b.Cap() != 8 {
		t.Fatalf("unexpected growth to %d", b.Cap())
	}
	if got := b.Peek(100); string(got) != "efghijkl" {
		t.Fatalf("peek = %q", got)
	}
	if _, err := b.Write([]byte("m")); err != ErrTooLarge {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}

func TestGrowKeepsOrder(t *testing.T) {
	b := New(4, 1<<10)
	var want []byte
	for i := 0; i < 50; i++ {
		chunk := bytes.Repeat([]byte{byte('a' + i%26)}, i%7+1)
		if _, err := b.Write(chunk); err != nil {
			t.Fatal(err)
		}
		want = append(want, chunk...)
		if i%3 == 0 {
			d := b.Discard(2)
			want = want[d:]
		}
	}
	if got := b.Peek(b.Len()); !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if b.Cap() > 1<<10 {
		t.Fatalf("cap %d exceeds limit", b.Cap())
	}
}

func TestLimitRejectsWithoutPartialWrite(t *testing.T) {
	b := New(4, 10)
	if _, err := b.Write(make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Write(make([]byte, 3)); err != ErrTooLarge {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
	if b.Len() != 8 || b.Free() != 2 {
		t.Fatalf("len=%d free=%d", b.Len(), b.Free())
	}
}

func TestDiscardAllResets(t *testing.T) {
	b := New(8, 8)
	b.Write([]byte("abc"))
	if n := b.Discard(10); n != 3 {
		t.Fatalf("discard = %d", n)
	}
	if b.Len() != 0 || b.Peek(1) != nil {
		t.Fatal("buffer not empty")
	}
}

func TestWrapWithLargeReadOffset(t *testing.T) {
	b := New(8, 8)
	b.Write([]byte("abcdef"))
	b.Discard(5)
	if _, err := b.Write([]byte("ghijk")); err != nil {
		t.Fatal(err)
	}
	if got := b.Peek(100); string(got) != "fghijk" {
		t.Fatalf("peek = %q", got)
	}
	b.Discard(4)
	if _, err := b.Write([]byte("lmnopq")); err != nil {
		t.Fatal(err)
	}
	if got := b.Peek(100); string(got) != "jklmnopq" {
		t.Fatalf("peek = %q", got)
	}
}
