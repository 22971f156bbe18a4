package jksn

// contentHash is the 8-bit DJB hash used to key the text and blob caches:
// h = h*33 + b over the bytes, truncated to the low 8 bits.
func contentHash(b []byte) uint8 {
	var h uint32
	for _, c := range b {
		h = h*33 + uint32(c)
	}
	return uint8(h)
}
