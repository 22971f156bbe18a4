package jksn

// maxVarintLen is the longest base-128 sequence accepted for a 63-bit value.
const maxVarintLen = 9

// appendUvarint appends v as a big-endian base-128 sequence. Every byte
// except the last has its high bit set.
func appendUvarint(dst []byte, v uint64) []byte {
	n := uvarintLen(v)
	for i := n - 1; i >= 0; i-- {
		b := byte(v>>(7*uint(i))) & 0x7f
		if i != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// uvarintLen returns the number of bytes appendUvarint writes for v.
func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// appendFixed appends the low size bytes of v, big-endian. Size is 1, 2 or 4;
// negative values come out in two's complement.
func appendFixed(dst []byte, v int64, size int) []byte {
	switch size {
	case 1:
		return append(dst, byte(v))
	case 2:
		return append(dst, byte(v>>8), byte(v))
	case 4:
		return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	default:
		panic("jksn: appendFixed: unsupported size")
	}
}

// encodeInt returns v in a fixed-width form of 1, 2 or 4 bytes, or as a
// varint when size is 0. The varint form requires v >= 0.
func encodeInt(v int64, size int) []byte {
	if size == 0 {
		if v < 0 {
			panic("jksn: encodeInt: negative varint")
		}
		return appendUvarint(make([]byte, 0, uvarintLen(uint64(v))), uint64(v))
	}
	return appendFixed(make([]byte, 0, size), v, size)
}

// decodeUvarint reads a base-128 sequence from buf. It returns the value and
// the number of bytes consumed; n == 0 means buf ended before the sequence
// did, n < 0 means the value does not fit in 63 bits.
func decodeUvarint(buf []byte) (v uint64, n int) {
	for i, b := range buf {
		if i == maxVarintLen {
			return 0, -1
		}
		if v > (1<<63-1)>>7 {
			return 0, -1
		}
		v = v<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}
