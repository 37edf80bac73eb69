package client

import "github.com/678uhb/this-space/protocol"

// batcher 累积待发送的消息，达到字节或条数阈值时提示刷新。
type batcher struct {
	frames   []protocol.Frame
	bytes    int
	// 压缩前的批前镜像大小（不含条数 varint）
	pre      int
	maxBytes int
	maxMsgs  int
}

func newBatcher(maxBytes, maxMsgs int) *batcher {
	return &batcher{maxBytes: maxBytes, maxMsgs: maxMsgs}
}

// add copies msg into the batch and reports whether a threshold was reached.
func (b *batcher) add(api uint16, msg []byte) (full bool) {
	b.frames = append(b.frames, protocol.Frame{API: api, Payload: append([]byte(nil), msg...)})
	b.bytes += len(msg)
	b.pre += protocol.BatchEntrySize(len(msg))
	return b.bytes >= b.maxBytes || len(b.frames) >= b.maxMsgs
}

func (b *batcher) take() []protocol.Frame {
	frames := b.frames
	b.frames = nil
	b.bytes = 0
	b.pre = 0
	return frames
}

func (b *batcher) len() int { return len(b.frames) }

func (b *batcher) size() int { return b.pre }
