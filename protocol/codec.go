package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Frame is one application message: an API id and an opaque payload.
type Frame struct {
	API     uint16
	Payload []byte
}

// Encoder 提供单帧/批量帧编码，无状态，零值可用。
// 注：批量帧总是压缩（Batched => Compressed）。
type Encoder struct{}

// Encode appends the wire form of f to dst: header, API, then the payload,
// zstd-compressed when compress is set.
func (Encoder) Encode(dst []byte, f Frame, compressed bool) ([]byte, error) {
	body := f.Payload
	if compressed {
		body = compress(nil, f.Payload)
	}
	dst, err := AppendHeader(dst, Header{Length: len(body), Compressed: compressed})
	if err != nil {
		return dst, err
	}
	dst = binary.BigEndian.AppendUint16(dst, f.API)
	return append(dst, body...), nil
}

// EncodeBatch 将一批消息编码为批前镜像并压缩，追加为单帧（Batched=1，无 API 字段）。
func (Encoder) EncodeBatch(dst []byte, frames []Frame) ([]byte, error) {
	pre := make([]byte, 0, batchSize(frames))
	pre = binary.AppendUvarint(pre, uint64(len(frames)))
	for _, f := range frames {
		pre = binary.BigEndian.AppendUint16(pre, f.API)
		pre = binary.AppendUvarint(pre, uint64(len(f.Payload)))
		pre = append(pre, f.Payload...)
	}
	body := compress(nil, pre)
	dst, err := AppendHeader(dst, Header{Length: len(body), Compressed: true, Batched: true})
	if err != nil {
		return dst, err
	}
	return append(dst, body...), nil
}

func batchSize(frames []Frame) int {
	n := binary.MaxVarintLen64
	for _, f := range frames {
		n += apiLen + binary.MaxVarintLen64 + len(f.Payload)
	}
	return n
}

// Parser 按帧解析；对批量帧进行解压并逐条回调。
// MaxPayload 为 0 时不限制单条消息大小。
type Parser struct {
	MaxPayload int
}

// Parse consumes as many complete frames from buf as it can and calls fn for
// every message. It returns the number of bytes consumed; a trailing partial
// frame is left for the next call. An error from fn stops parsing.
func (p Parser) Parse(buf []byte, fn func(Frame) error) (consumed int, _ error) {
	i := 0
	for len(buf[i:]) >= shortHeaderLen {
		h, c, err := ParseHeader(buf[i:])
		if err == errHeaderTooShort {
			return i, nil
		}
		if err != nil {
			return i, err
		}
		if !p.fits(h) {
			return i, ErrTooLarge
		}
		if len(buf[i+c:]) < h.bodySize() {
			return i, nil // 不完整帧
		}
		body := buf[i+c : i+c+h.bodySize()]
		i += c + h.bodySize()

		if h.Batched {
			if err := p.parseBatch(body, fn); err != nil {
				return i, err
			}
			continue
		}
		f := Frame{API: binary.BigEndian.Uint16(body), Payload: body[apiLen:]}
		if h.Compressed {
			if f.Payload, err = decompress(f.Payload, p.MaxPayload); err != nil {
				return i, err
			}
		}
		if err := fn(f); err != nil {
			return i, err
		}
	}
	return i, nil
}

func (p Parser) tooLarge(n int) bool {
	return p.MaxPayload > 0 && n > p.MaxPayload
}

// fits bounds the wire length a header announces. Compressed bodies may
// exceed MaxPayload by zstd framing; their expanded size is checked when
// they are decompressed.
func (p Parser) fits(h Header) bool {
	if p.MaxPayload <= 0 {
		return true
	}
	if h.Compressed {
		return h.Length <= compressBound(p.MaxPayload)
	}
	return h.Length <= p.MaxPayload
}

// missing reports how many more bytes buf needs before it holds one
// complete frame; zero means the first frame is complete.
func (p Parser) missing(buf []byte) (int, error) {
	if len(buf) < shortHeaderLen {
		return shortHeaderLen - len(buf), nil
	}
	if headerSize(buf) == longHeaderLen && len(buf) < longHeaderLen {
		return longHeaderLen - len(buf), nil
	}
	h, c, err := ParseHeader(buf)
	if err != nil {
		return 0, err
	}
	if !p.fits(h) {
		return 0, ErrTooLarge
	}
	return max(0, c+h.bodySize()-len(buf)), nil
}

// MaxFrameSize is the largest wire frame a Parser with this maxPayload
// accepts.
func MaxFrameSize(maxPayload int) int {
	if maxPayload <= 0 {
		return longHeaderLen + apiLen + longHeadMaxLen
	}
	return longHeaderLen + apiLen + compressBound(maxPayload)
}

// BatchEntrySize is what one message of n payload bytes adds to a batch
// before compression. A whole batch, plus binary.MaxVarintLen64 for the
// count, must stay within the receiver's MaxPayload.
func BatchEntrySize(n int) int {
	return apiLen + uvarintLen(uint64(n)) + n
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func (p Parser) parseBatch(body []byte, fn func(Frame) error) error {
	// 批前镜像整体不超过 MaxPayload
	pre, err := decompress(body, p.MaxPayload)
	if err != nil {
		return err
	}
	r := bytes.NewReader(pre)
	num, err := binary.ReadUvarint(r)
	if err != nil {
		return err
	}
	for j := uint64(0); j < num; j++ {
		var ab [apiLen]byte
		if _, err := io.ReadFull(r, ab[:]); err != nil {
			return err
		}
		ln, err := binary.ReadUvarint(r)
		if err != nil {
			return err
		}
		if p.tooLarge(int(ln)) || ln > uint64(r.Len()) {
			return ErrTooLarge
		}
		f := Frame{API: binary.BigEndian.Uint16(ab[:])}
		if ln > 0 {
			f.Payload = make([]byte, ln)
			if _, err := io.ReadFull(r, f.Payload); err != nil {
				return err
			}
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
