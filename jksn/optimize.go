package jksn

import "bytes"

// textSlot remembers the last string payload that hashed to a slot, along
// with its family (0x30 UTF-16 or 0x40 UTF-8): the decoder caches decoded
// text, so equal bytes in different families are different entries.
type textSlot struct {
	family  byte
	payload []byte
	ok      bool
}

type blobSlot struct {
	payload []byte
	ok      bool
}

// encodeCache mirrors the state the decoder rebuilds while reading: the
// last plain integer and the last payload seen in every hash slot.
type encodeCache struct {
	lastInt    int64
	hasLastInt bool
	text       [256]textSlot
	blob       [256]blobSlot
}

// optimize rewrites integer nodes into delta form and repeated strings and
// blobs into back-references. Nodes are visited in serialization order so
// the cache evolves exactly as the decoder's will.
func (st *encodeState) optimize(n *node) {
	switch n.enc.control & 0xf0 {
	case 0x10:
		st.optimizeInt(n)
	case 0x30, 0x40:
		st.optimizeText(n)
	case 0x50:
		st.optimizeBlob(n)
	default:
		for _, c := range n.children {
			st.optimize(c)
		}
	}
}

func (st *encodeState) optimizeInt(n *node) {
	c := &st.cache
	if st.cfg.delta && c.hasLastInt {
		delta := n.intVal - c.lastInt
		if abs(delta) < abs(n.intVal) {
			control, data := deltaEncoding(delta)
			if len(data) < len(n.enc.data) {
				n.enc = encoding{control: control, data: data}
			}
		}
	}
	c.lastInt, c.hasLastInt = n.intVal, true
}

// deltaEncoding picks the shortest 0xD0-family form of delta.
func deltaEncoding(delta int64) (byte, []byte) {
	switch {
	case delta >= 0 && delta <= 0x5:
		return 0xd0 | byte(delta), nil
	case delta >= -0x5 && delta <= -0x1:
		return 0xd0 | byte(delta+11), nil
	case delta >= -0x80 && delta <= 0x7f:
		return 0xdd, encodeInt(delta, 1)
	case delta >= -0x8000 && delta <= 0x7fff:
		return 0xdc, encodeInt(delta, 2)
	case (delta >= -0x80000000 && delta <= -0x200000) || (delta >= 0x200000 && delta <= 0x7fffffff):
		return 0xdb, encodeInt(delta, 4)
	case delta >= 0:
		return 0xdf, encodeInt(delta, 0)
	default:
		return 0xde, encodeInt(-delta, 0)
	}
}

func (st *encodeState) optimizeText(n *node) {
	family := n.enc.control & 0xf0
	slot := &st.cache.text[n.hash]
	if st.cfg.cache && len(n.enc.payload) > 1 && slot.ok &&
		slot.family == family && bytes.Equal(slot.payload, n.enc.payload) {
		n.enc = encoding{control: 0x3c, data: []byte{n.hash}}
		return
	}
	*slot = textSlot{family: family, payload: n.enc.payload, ok: true}
}

func (st *encodeState) optimizeBlob(n *node) {
	slot := &st.cache.blob[n.hash]
	if st.cfg.cache && len(n.enc.payload) > 1 && slot.ok && bytes.Equal(slot.payload, n.enc.payload) {
		n.enc = encoding{control: 0x5c, data: []byte{n.hash}}
		return
	}
	*slot = blobSlot{payload: n.enc.payload, ok: true}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
