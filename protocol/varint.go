package protocol

import "errors"

// MaxVarintLen is the longest encoding of a 64bit length.
const MaxVarintLen = 10

var (
	// ErrNeedMore is returned when the buffer ends before a complete length,
	// word or sentence. It is not a failure, the caller should wait for more
	// input and try again.
	ErrNeedMore = errors.New("protocol: need more data")

	ErrVarintOverflow = errors.New("protocol: word length overflows a 64-bit integer")
)

// EncodeLength returns the varint encoding of n.
func EncodeLength(n uint64) []byte {
	b := make([]byte, 0, 4)

	for n >= 0x80 {
		b = append(b, byte(n)|0x80)
		n >>= 7
	}

	return append(b, byte(n))
}

// DecodeLength decodes a varint from the front of buf. It returns the value
// and the number of bytes it used.
func DecodeLength(buf []byte) (n uint64, size int, err error) {
	var shift uint

	for i, b := range buf {
		if i == MaxVarintLen {
			return 0, 0, ErrVarintOverflow
		}

		if i == MaxVarintLen-1 && b > 1 {
			// Only the lowest bit of the last byte fits in 64 bits
			return 0, 0, ErrVarintOverflow
		}

		n |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return n, i + 1, nil
		}

		shift += 7
	}

	if len(buf) >= MaxVarintLen {
		return 0, 0, ErrVarintOverflow
	}

	return 0, 0, ErrNeedMore
}
