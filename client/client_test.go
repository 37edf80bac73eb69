package client_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/678uhb/this-space/client"
	"github.com/678uhb/this-space/protocol"
	"github.com/678uhb/this-space/sock"
)

func peer(t *testing.T, cfg client.Config) (*client.Client, *sock.Socket) {
	t.Helper()
	l, err := sock.Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	cfg.Address = "127.0.0.1:" + strconv.Itoa(int(l.Port()))
	c, err := client.Dial(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s := l.Accept(time.Second)
	if s == nil {
		t.Fatal("accept failed")
	}
	t.Cleanup(func() { c.Close(); s.Close() })
	return c, s
}

func readAll(t *testing.T, s *sock.Socket, deadline time.Duration) []protocol.Frame {
	t.Helper()
	var got []protocol.Frame
	err := protocol.ReadFrames(s, deadline, 0, func(f protocol.Frame) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestDialErrors(t *testing.T) {
	cfg := client.DefaultConfig()
	cfg.Address = "127.0.0.1"
	if _, err := client.Dial(cfg); err != client.ErrMissingPort {
		t.Fatalf("want ErrMissingPort, got %v", err)
	}

	l, err := sock.Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	port := l.Port()
	l.Close()
	cfg.Address = "127.0.0.1:" + strconv.Itoa(int(port))
	cfg.DialTimeout = 50 * time.Millisecond
	if _, err := client.Dial(cfg); err != client.ErrNotConnected {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}

func TestDialResolvesLocalhost(t *testing.T) {
	l, err := sock.Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	cfg := client.DefaultConfig()
	cfg.Address = "localhost:" + strconv.Itoa(int(l.Port()))
	c, err := client.Dial(cfg)
	if err != nil {
		t.Skipf("localhost does not resolve to IPv4 here: %v", err)
	}
	c.Close()
}

func TestQueueFlushesAtThreshold(t *testing.T) {
	cfg := client.DefaultConfig()
	cfg.BatchMsgs = 3
	c, s := peer(t, cfg)

	for i := 0; i < 3; i++ {
		if err := c.Queue(uint16(i), []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	got := readAll(t, s, time.Second)
	if len(got) != 3 {
		t.Fatalf("got %d messages", len(got))
	}
	for i, f := range got {
		if f.API != uint16(i) || len(f.Payload) != 1 || f.Payload[0] != byte(i) {
			t.Fatalf("message %d = %+v", i, f)
		}
	}
}

func TestQueueHoldsUntilFlush(t *testing.T) {
	c, s := peer(t, client.DefaultConfig())

	if err := c.Queue(1, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if got := s.Recv(20 * time.Millisecond); len(got) != 0 {
		t.Fatalf("queued message sent early: %d bytes", len(got))
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, s, time.Second); len(got) != 1 || string(got[0].Payload) != "a" {
		t.Fatalf("got %+v", got)
	}
}

func TestReadDrainsBatchOneByOne(t *testing.T) {
	c, s := peer(t, client.DefaultConfig())

	if err := protocol.WriteBatch(s, []protocol.Frame{{API: 1}, {API: 2, Payload: []byte("b")}}, time.Second); err != nil {
		t.Fatal(err)
	}
	for _, want := range []uint16{1, 2} {
		f, err := c.Read(time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if f.API != want {
			t.Fatalf("api = %d, want %d", f.API, want)
		}
	}
	if _, err := c.Read(20 * time.Millisecond); err != protocol.ErrTimeout {
		t.Fatalf("want ErrTimeout, got %v", err)
	}
}

func TestClosedClientRejectsWrites(t *testing.T) {
	c, _ := peer(t, client.DefaultConfig())
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Write(1, nil); err != client.ErrClosed {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Queue(1, nil); err != client.ErrClosed {
		t.Fatalf("Queue: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestReadResumesFrameAfterTimeout(t *testing.T) {
	c, s := peer(t, client.DefaultConfig())

	frame, _ := protocol.Encoder{}.Encode(nil, protocol.Frame{API: 4, Payload: []byte("hello world")}, false)
	if n := s.Send(frame[:5], time.Second); n != 5 {
		t.Fatalf("sent %d", n)
	}
	if _, err := c.Read(50 * time.Millisecond); err != protocol.ErrTimeout {
		t.Fatalf("want ErrTimeout, got %v", err)
	}
	if n := s.Send(frame[5:], time.Second); n != len(frame)-5 {
		t.Fatalf("sent %d", n)
	}
	f, err := c.Read(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if f.API != 4 || string(f.Payload) != "hello world" {
		t.Fatalf("got api=%d payload=%q", f.API, f.Payload)
	}
}

func TestQueueKeepsBatchUnderMaxPayload(t *testing.T) {
	cfg := client.DefaultConfig()
	cfg.MaxPayload = 1000
	cfg.BatchBytes = 1 << 20
	c, s := peer(t, cfg)

	if err := c.Queue(1, make([]byte, 2000)); err != protocol.ErrTooLarge {
		t.Fatalf("oversized message: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := c.Queue(uint16(i), make([]byte, 400)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	// 两条 400 字节消息后第三条放不下，先发出前一批
	var counts []int
	for i := 0; i < 2; i++ {
		n := 0
		err := protocol.ReadFrames(s, time.Second, cfg.MaxPayload, func(protocol.Frame) error {
			n++
			return nil
		})
		if err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
		counts = append(counts, n)
	}
	if counts[0] != 2 || counts[1] != 1 {
		t.Fatalf("batch sizes %v", counts)
	}
	if got := s.Recv(20 * time.Millisecond); len(got) != 0 {
		t.Fatalf("unexpected %d trailing bytes", len(got))
	}
}
