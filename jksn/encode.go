package jksn

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Magic is the optional header that starts a JKSN stream.
const Magic = "jk!"

// utf16LE is the UTF-16 form used by the 0x30 string family: little-endian
// code units, no byte order mark.
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Encoder serializes values to JKSN. Every call to Encode starts from empty
// caches, so one Encoder may be used from several goroutines.
type Encoder struct {
	cfg encodeConfig
}

// NewEncoder creates an Encoder.
func NewEncoder(opts ...EncodeOption) *Encoder {
	cfg := defaultEncodeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Encoder{cfg: cfg}
}

// Encode serializes v into a complete JKSN frame.
func Encode(v *Value, opts ...EncodeOption) ([]byte, error) {
	return NewEncoder(opts...).Encode(v)
}

// Encode serializes v into a complete JKSN frame.
func (e *Encoder) Encode(v *Value) ([]byte, error) {
	st := &encodeState{cfg: e.cfg}
	root, err := st.encodeValue(v)
	if err != nil {
		return nil, err
	}
	st.optimize(root)
	return st.serialize(root)
}

// encodeState is the per-call state of one Encode: options plus the
// integer and hash caches consulted by the optimizer.
type encodeState struct {
	cfg   encodeConfig
	cache encodeCache
}

// ============================================================
// Classification
// ============================================================

func (st *encodeState) encodeValue(v *Value) (*node, error) {
	switch v.Kind() {
	case KindAbsent:
		return newNode(v, 0x00, nil, nil), nil
	case KindNull:
		return newNode(v, 0x01, nil, nil), nil
	case KindBool:
		if v.boolVal {
			return newNode(v, 0x03, nil, nil), nil
		}
		return newNode(v, 0x02, nil, nil), nil
	case KindUnspecified:
		return newNode(v, 0xa0, nil, nil), nil
	case KindInt:
		if v.intVal >= math.MinInt32 && v.intVal <= math.MaxInt32 {
			return intNode(v, v.intVal), nil
		}
		return floatNode(v, float64(v.intVal)), nil
	case KindFloat:
		return floatNode(v, v.floatVal), nil
	case KindText:
		return encodeText(v, v.textVal), nil
	case KindBlob:
		return encodeBlob(v, v.blobVal), nil
	case KindList:
		return st.encodeList(v)
	case KindRecord:
		return st.encodeRecord(v)
	default:
		return nil, fmt.Errorf("%w: cannot encode value of kind %s", ErrShapeMismatch, v.Kind())
	}
}

// ============================================================
// Numbers
// ============================================================

// intNode encodes an integer known to fit in 32 bits.
func intNode(origin *Value, v int64) *node {
	control, data := intEncoding(v)
	n := newNode(origin, control, data, nil)
	n.intVal = v
	return n
}

// intEncoding picks the shortest 0x10-family form of v. Below 0x200000 the
// varint takes at most 3 bytes, so the fixed 4-byte form is only used above.
func intEncoding(v int64) (byte, []byte) {
	switch {
	case v >= 0 && v <= 0xa:
		return 0x10 | byte(v), nil
	case v >= -0x80 && v <= 0x7f:
		return 0x1d, encodeInt(v, 1)
	case v >= -0x8000 && v <= 0x7fff:
		return 0x1c, encodeInt(v, 2)
	case (v >= -0x80000000 && v <= -0x200000) || (v >= 0x200000 && v <= 0x7fffffff):
		return 0x1b, encodeInt(v, 4)
	case v >= 0:
		return 0x1f, encodeInt(v, 0)
	default:
		return 0x1e, encodeInt(-v, 0)
	}
}

// floatNode encodes a number that is not a 32-bit integer as a double, and
// folds integral doubles back into the integer forms.
func floatNode(origin *Value, f float64) *node {
	switch {
	case math.IsNaN(f):
		return newNode(origin, 0x20, nil, nil)
	case math.IsInf(f, -1):
		return newNode(origin, 0x2e, nil, nil)
	case math.IsInf(f, 1):
		return newNode(origin, 0x2f, nil, nil)
	case f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32:
		return intNode(origin, int64(f))
	}
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, math.Float64bits(f))
	return newNode(origin, 0x2c, data, nil)
}

// ============================================================
// Strings and blobs
// ============================================================

// encodeText picks the shorter of the UTF-16 and UTF-8 forms of s; ties go
// to UTF-8. Strings that are not valid UTF-8 always use the UTF-8 family so
// their bytes are kept as they are.
func encodeText(origin *Value, s string) *node {
	payload := []byte(s)
	family, length, inlineMax := byte(0x40), len(payload), 0x0c
	if units, ok := utf16Units(s); ok && units*2 < len(payload) {
		if u16, err := utf16LE.NewEncoder().Bytes(payload); err == nil {
			payload, family, length, inlineMax = u16, 0x30, units, 0x0b
		}
	}
	control, data := lengthHeader(family, length, inlineMax)
	n := newNode(origin, control, data, payload)
	n.hash = contentHash(payload)
	return n
}

// utf16Units counts the UTF-16 code units of s.
func utf16Units(s string) (int, bool) {
	if !utf8.ValidString(s) {
		return 0, false
	}
	units := 0
	for _, r := range s {
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return units, true
}

func encodeBlob(origin *Value, b []byte) *node {
	control, data := lengthHeader(0x50, len(b), 0x0b)
	n := newNode(origin, control, data, b)
	n.hash = contentHash(b)
	return n
}

// lengthHeader returns the control byte and inline data announcing a length
// or count n for the given tag family: n itself in the low nibble when it is
// at most inlineMax, else a 1-byte (0xE), 2-byte (0xD) or varint (0xF) field.
func lengthHeader(family byte, n, inlineMax int) (byte, []byte) {
	switch {
	case n <= inlineMax:
		return family | byte(n), nil
	case n <= 0xff:
		return family | 0x0e, encodeInt(int64(n), 1)
	case n <= 0xffff:
		return family | 0x0d, encodeInt(int64(n), 2)
	default:
		return family | 0x0f, encodeInt(int64(n), 0)
	}
}

// ============================================================
// Serialization
// ============================================================

func (st *encodeState) serialize(root *node) ([]byte, error) {
	start := 0
	if st.cfg.header {
		start = len(Magic)
	}
	buf := make([]byte, start+root.size(0))
	copy(buf, Magic[:start])
	if end := root.writeTo(buf, start); end != len(buf) {
		return nil, fmt.Errorf("%w: wrote %d bytes, expected %d", ErrInternalConsistency, end, len(buf))
	}
	return buf, nil
}
