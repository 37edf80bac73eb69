package protocol

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encoderPool = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		return enc
	}}
	decoderPool = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	}}
)

func compress(dst, src []byte) []byte {
	enc := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(enc)
	return enc.EncodeAll(src, dst)
}

// decompress expands src. With maxSize > 0 it stops after maxSize+1 bytes
// and reports ErrTooLarge, so oversized input is never fully expanded.
func decompress(src []byte, maxSize int) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)
	if maxSize <= 0 {
		return dec.DecodeAll(src, nil)
	}
	if err := dec.Reset(bytes.NewReader(src)); err != nil {
		return nil, err
	}
	defer dec.Reset(nil)
	out, err := io.ReadAll(io.LimitReader(dec, int64(maxSize)+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxSize {
		return nil, ErrTooLarge
	}
	return out, nil
}

// compressBound is the largest zstd output for n input bytes.
func compressBound(n int) int {
	return n + n>>8 + 512
}
