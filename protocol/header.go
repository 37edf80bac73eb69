package protocol

import (
	"encoding/binary"
	"errors"
)

// 头部编码（LenFlags）：
// 短头（2B，BE）：
//   bit15: Compressed
//   bit14: Batched (隐含 Compressed=1)
//   bit13: Ext=0
//   bit12..0: Len13 (0..8191)
// 长头（4B，BE）：
//   bit31: Compressed
//   bit30: Batched
//   bit29: Ext=1
//   bit28..0: Len29
// 非批量帧在头部之后紧跟 2 字节 API（BE），Len 不包含 API。

const (
	shortHeadMaxLen = (1 << 13) - 1
	longHeadMaxLen  = (1 << 29) - 1

	shortHeaderLen = 2
	longHeaderLen  = 4
	apiLen         = 2
)

var (
	errHeaderTooShort   = errors.New("protocol: header too short")
	errLengthOutOfRange = errors.New("protocol: length out of range")
)

// Header is the decoded LenFlags prefix of a wire frame.
type Header struct {
	Length     int
	Compressed bool
	Batched    bool
}

// AppendHeader appends the 2- or 4-byte encoding of h to dst.
func AppendHeader(dst []byte, h Header) ([]byte, error) {
	if h.Length < 0 || h.Length > longHeadMaxLen {
		return dst, errLengthOutOfRange
	}
	if h.Batched {
		h.Compressed = true
	}
	if h.Length <= shortHeadMaxLen {
		v := uint16(h.Length)
		if h.Compressed {
			v |= 1 << 15
		}
		if h.Batched {
			v |= 1 << 14
		}
		return binary.BigEndian.AppendUint16(dst, v), nil
	}
	v := uint32(1<<29) | uint32(h.Length)
	if h.Compressed {
		v |= 1 << 31
	}
	if h.Batched {
		v |= 1 << 30
	}
	return binary.BigEndian.AppendUint32(dst, v), nil
}

// headerSize reports how many header bytes b announces; b needs at least
// the first two bytes.
func headerSize(b []byte) int {
	if b[0]&(1<<5) != 0 {
		return longHeaderLen
	}
	return shortHeaderLen
}

// ParseHeader decodes the header at the start of b and returns it together
// with the number of bytes it occupies.
func ParseHeader(b []byte) (Header, int, error) {
	if len(b) < shortHeaderLen {
		return Header{}, 0, errHeaderTooShort
	}
	if headerSize(b) == shortHeaderLen {
		v := binary.BigEndian.Uint16(b)
		return Header{
			Length:     int(v & shortHeadMaxLen),
			Compressed: v&(1<<15) != 0,
			Batched:    v&(1<<14) != 0,
		}, shortHeaderLen, nil
	}
	if len(b) < longHeaderLen {
		return Header{}, 0, errHeaderTooShort
	}
	v := binary.BigEndian.Uint32(b)
	return Header{
		Length:     int(v & longHeadMaxLen),
		Compressed: v&(1<<31) != 0,
		Batched:    v&(1<<30) != 0,
	}, longHeaderLen, nil
}

// bodySize is the number of bytes that follow the header.
func (h Header) bodySize() int {
	if h.Batched {
		return h.Length
	}
	return apiLen + h.Length
}
