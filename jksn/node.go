package jksn

// encoding is the part of a node that reaches the wire: the control byte,
// fixed inline data and the variable payload.
type encoding struct {
	control byte
	data    []byte
	payload []byte
}

// node is one serialized unit of the encoding tree. Its children are fixed
// when it is built; enc may be replaced once by the optimizer.
type node struct {
	origin   *Value
	intVal   int64 // integer nodes: the value, used for delta encoding
	hash     uint8 // text and blob nodes: content hash of payload
	enc      encoding
	children []*node
}

func newNode(origin *Value, control byte, data, payload []byte) *node {
	return &node{
		origin: origin,
		enc:    encoding{control: control, data: data, payload: payload},
	}
}

// size returns the serialized size of n. A depth of 0 counts the whole
// subtree; depth d > 0 counts only d levels, n itself being the first.
func (n *node) size(depth int) int {
	total := 1 + len(n.enc.data) + len(n.enc.payload)
	switch depth {
	case 0:
		for _, c := range n.children {
			total += c.size(0)
		}
	case 1:
	default:
		for _, c := range n.children {
			total += c.size(depth - 1)
		}
	}
	return total
}

// writeTo writes n and its children into buf at off and returns the offset
// just past the last byte written.
func (n *node) writeTo(buf []byte, off int) int {
	buf[off] = n.enc.control
	off++
	off += copy(buf[off:], n.enc.data)
	off += copy(buf[off:], n.enc.payload)
	for _, c := range n.children {
		off = c.writeTo(buf, off)
	}
	return off
}
