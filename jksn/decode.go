package jksn

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strconv"
)

// checksumSizes maps the low three bits of a checksum control byte
// (0xF0-0xF5 and 0xF8-0xFD) to the size of the checksum that follows.
var checksumSizes = [6]int{1, 4, 16, 20, 32, 64}

// Decoder parses JKSN streams. Every call to Decode starts from empty
// caches, so one Decoder may be used from several goroutines.
type Decoder struct {
	cfg decodeConfig
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...DecodeOption) *Decoder {
	cfg := defaultDecodeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Decoder{cfg: cfg}
}

// Decode parses one value from data. A leading "jk!" header is skipped.
// Bytes after the first value are ignored.
func Decode(data []byte, opts ...DecodeOption) (*Value, error) {
	return NewDecoder(opts...).Decode(data)
}

// Decode parses one value from data. A leading "jk!" header is skipped.
// Bytes after the first value are ignored.
func (d *Decoder) Decode(data []byte) (*Value, error) {
	v, _, err := d.DecodeN(data)
	return v, err
}

// DecodeN is like Decode but also returns the number of bytes consumed,
// header included.
func (d *Decoder) DecodeN(data []byte) (*Value, int, error) {
	st := &decodeState{buf: data, cfg: d.cfg}
	if len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic {
		st.off = len(Magic)
	}
	v, err := st.readValue(0)
	if err != nil {
		return nil, 0, err
	}
	return v, st.off, nil
}

// decodeState is the per-call cursor and cache state of one decode.
type decodeState struct {
	cfg decodeConfig
	buf []byte
	off int

	lastInt    int64
	hasLastInt bool
	text       [256]*string
	blob       [256][]byte
}

// ============================================================
// Primitive reads
// ============================================================

func (st *decodeState) fail(kind error, offset int, format string, args ...any) error {
	return &DecodeError{Kind: kind, Reason: fmt.Sprintf(format, args...), Offset: offset}
}

func (st *decodeState) truncated(want int) error {
	return st.fail(ErrMalformedStream, st.off, "stream truncated: need %d bytes, have %d", want, len(st.buf)-st.off)
}

func (st *decodeState) take(n int) ([]byte, error) {
	if n < 0 || n > len(st.buf)-st.off {
		return nil, st.truncated(n)
	}
	b := st.buf[st.off : st.off+n]
	st.off += n
	return b, nil
}

func (st *decodeState) readByte() (byte, error) {
	if st.off >= len(st.buf) {
		return 0, st.truncated(1)
	}
	b := st.buf[st.off]
	st.off++
	return b, nil
}

// readFixed reads a big-endian integer of 1, 2 or 4 bytes, sign-extended
// when signed is set.
func (st *decodeState) readFixed(size int, signed bool) (int64, error) {
	b, err := st.take(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		if signed {
			return int64(int8(b[0])), nil
		}
		return int64(b[0]), nil
	case 2:
		u := binary.BigEndian.Uint16(b)
		if signed {
			return int64(int16(u)), nil
		}
		return int64(u), nil
	default:
		u := binary.BigEndian.Uint32(b)
		if signed {
			return int64(int32(u)), nil
		}
		return int64(u), nil
	}
}

func (st *decodeState) readUvarint() (int64, error) {
	v, n := decodeUvarint(st.buf[st.off:])
	switch {
	case n == 0:
		return 0, st.fail(ErrMalformedStream, st.off, "unterminated variable-length integer")
	case n < 0:
		return 0, st.fail(ErrMalformedStream, st.off, "variable-length integer overflows 63 bits")
	}
	st.off += n
	return int64(v), nil
}

// readLength decodes the length or count announced by control: the low
// nibble itself, or a 1-byte (0xE), 2-byte (0xD) or varint (0xF) field.
func (st *decodeState) readLength(control byte) (int, error) {
	var n int64
	var err error
	switch control & 0x0f {
	case 0x0e:
		n, err = st.readFixed(1, false)
	case 0x0d:
		n, err = st.readFixed(2, false)
	case 0x0f:
		n, err = st.readUvarint()
	default:
		n = int64(control & 0x0f)
	}
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		return 0, st.fail(ErrMalformedStream, st.off, "length %d too large", n)
	}
	return int(n), nil
}

// readCount is readLength for containers holding count elements of at least
// perItem bytes each; counts that cannot fit in the rest of the stream are
// rejected before anything is allocated.
func (st *decodeState) readCount(control byte, perItem int) (int, error) {
	n, err := st.readLength(control)
	if err != nil {
		return 0, err
	}
	if n > (len(st.buf)-st.off)/perItem {
		return 0, st.fail(ErrMalformedStream, st.off, "count %d exceeds remaining stream", n)
	}
	return n, nil
}

// ============================================================
// Values
// ============================================================

// readValue reads the next value. Cache refreshes, skipped values,
// checksums and pragmas are consumed in a loop until a value is found.
func (st *decodeState) readValue(depth int) (*Value, error) {
	if depth > st.cfg.maxDepth {
		return nil, st.fail(ErrMalformedStream, st.off, "nesting deeper than %d", st.cfg.maxDepth)
	}
	for {
		start := st.off
		control, err := st.readByte()
		if err != nil {
			return nil, err
		}
		switch control & 0xf0 {
		case 0x00:
			switch control {
			case 0x00:
				return Absent(), nil
			case 0x01:
				return Null(), nil
			case 0x02:
				return Bool(false), nil
			case 0x03:
				return Bool(true), nil
			case 0x0f:
				return st.readJSONLiteral(depth)
			}

		case 0x10:
			return st.readInt(control)

		case 0x20:
			switch control {
			case 0x20:
				return Float(math.NaN()), nil
			case 0x2b:
				return nil, st.fail(ErrUnsupportedEncoding, start, "extended precision float")
			case 0x2c:
				b, err := st.take(8)
				if err != nil {
					return nil, err
				}
				return Float(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
			case 0x2d:
				b, err := st.take(4)
				if err != nil {
					return nil, err
				}
				return Float(float64(math.Float32frombits(binary.BigEndian.Uint32(b)))), nil
			case 0x2e:
				return Float(math.Inf(-1)), nil
			case 0x2f:
				return Float(math.Inf(1)), nil
			}

		case 0x30:
			if control == 0x3c {
				return st.readTextRef(start)
			}
			return st.readUTF16(control)

		case 0x40:
			return st.readUTF8(control)

		case 0x50:
			if control == 0x5c {
				return st.readBlobRef(start)
			}
			return st.readBlob(control)

		case 0x70:
			if control == 0x70 {
				st.text = [256]*string{}
				st.blob = [256][]byte{}
				continue
			}
			n, err := st.readCount(control, 1)
			if err != nil {
				return nil, err
			}
			for ; n > 0; n-- {
				if _, err := st.readValue(depth + 1); err != nil {
					return nil, err
				}
			}
			continue

		case 0x80:
			return st.readList(control, depth)

		case 0x90:
			return st.readRecord(control, depth)

		case 0xa0:
			if control == 0xa0 {
				return Unspecified(), nil
			}
			return st.readSwapped(control, depth)

		case 0xc0:
			if control == 0xc8 {
				return st.readLengthless(depth)
			}

		case 0xd0:
			return st.readDelta(control, start)

		case 0xf0:
			if control <= 0xf5 || (control >= 0xf8 && control <= 0xfd) {
				size := checksumSizes[control&0x07]
				st.cfg.logger.Warn("jksn: checksum not verified",
					slog.String("control", fmt.Sprintf("0x%02x", control)),
					slog.Int("offset", start),
					slog.Int("size", size))
				if _, err := st.take(size); err != nil {
					return nil, err
				}
				continue
			}
			if control == 0xff {
				if _, err := st.readValue(depth + 1); err != nil {
					return nil, err
				}
				continue
			}
		}
		return nil, st.fail(ErrMalformedStream, start, "unrecognized control byte 0x%02x", control)
	}
}

func (st *decodeState) readInt(control byte) (*Value, error) {
	var v int64
	var err error
	switch control {
	case 0x1b:
		v, err = st.readFixed(4, true)
	case 0x1c:
		v, err = st.readFixed(2, true)
	case 0x1d:
		v, err = st.readFixed(1, true)
	case 0x1e:
		v, err = st.readUvarint()
		v = -v
	case 0x1f:
		v, err = st.readUvarint()
	default:
		v = int64(control & 0x0f)
	}
	if err != nil {
		return nil, err
	}
	st.lastInt, st.hasLastInt = v, true
	return Int(v), nil
}

func (st *decodeState) readDelta(control byte, start int) (*Value, error) {
	var delta int64
	var err error
	switch {
	case control <= 0xd5:
		delta = int64(control & 0x0f)
	case control <= 0xda:
		delta = int64(control&0x0f) - 11
	case control == 0xdb:
		delta, err = st.readFixed(4, true)
	case control == 0xdc:
		delta, err = st.readFixed(2, true)
	case control == 0xdd:
		delta, err = st.readFixed(1, true)
	case control == 0xde:
		delta, err = st.readUvarint()
		delta = -delta
	default:
		delta, err = st.readUvarint()
	}
	if err != nil {
		return nil, err
	}
	if !st.hasLastInt {
		return nil, st.fail(ErrInvalidDelta, start, "delta %d with no preceding integer", delta)
	}
	sum := st.lastInt + delta
	if (delta > 0 && sum < st.lastInt) || (delta < 0 && sum > st.lastInt) {
		return nil, st.fail(ErrMalformedStream, start, "delta integer overflows")
	}
	st.lastInt = sum
	return Int(sum), nil
}

func (st *decodeState) readUTF16(control byte) (*Value, error) {
	units, err := st.readLength(control)
	if err != nil {
		return nil, err
	}
	raw, err := st.take(2 * units)
	if err != nil {
		return nil, err
	}
	decoded, err := utf16LE.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, st.fail(ErrMalformedStream, st.off-len(raw), "invalid UTF-16 text: %v", err)
	}
	s := string(decoded)
	st.text[contentHash(raw)] = &s
	return Text(s), nil
}

func (st *decodeState) readUTF8(control byte) (*Value, error) {
	n, err := st.readLength(control)
	if err != nil {
		return nil, err
	}
	raw, err := st.take(n)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	st.text[contentHash(raw)] = &s
	return Text(s), nil
}

func (st *decodeState) readTextRef(start int) (*Value, error) {
	h, err := st.readByte()
	if err != nil {
		return nil, err
	}
	s := st.text[h]
	if s == nil {
		return nil, st.fail(ErrUnresolvedBackReference, start, "no cached text for hash 0x%02x", h)
	}
	return Text(*s), nil
}

func (st *decodeState) readBlob(control byte) (*Value, error) {
	n, err := st.readLength(control)
	if err != nil {
		return nil, err
	}
	raw, err := st.take(n)
	if err != nil {
		return nil, err
	}
	b := append([]byte{}, raw...)
	st.blob[contentHash(b)] = b
	return Blob(b), nil
}

func (st *decodeState) readBlobRef(start int) (*Value, error) {
	h, err := st.readByte()
	if err != nil {
		return nil, err
	}
	b := st.blob[h]
	if b == nil {
		return nil, st.fail(ErrUnresolvedBackReference, start, "no cached blob for hash 0x%02x", h)
	}
	return Blob(append([]byte{}, b...)), nil
}

// ============================================================
// Containers
// ============================================================

func (st *decodeState) readList(control byte, depth int) (*Value, error) {
	n, err := st.readCount(control, 1)
	if err != nil {
		return nil, err
	}
	elems := make([]*Value, n)
	for i := range elems {
		if elems[i], err = st.readValue(depth + 1); err != nil {
			return nil, err
		}
	}
	return List(elems...), nil
}

func (st *decodeState) readRecord(control byte, depth int) (*Value, error) {
	n, err := st.readCount(control, 2)
	if err != nil {
		return nil, err
	}
	rec := &Value{kind: KindRecord, fields: make([]Field, 0, n)}
	for ; n > 0; n-- {
		key, err := st.readKey(depth)
		if err != nil {
			return nil, err
		}
		val, err := st.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		rec.Set(key, val)
	}
	return rec, nil
}

// readKey reads a record key or column name. Keys are text; integer keys
// written by other implementations are accepted in decimal form.
func (st *decodeState) readKey(depth int) (string, error) {
	start := st.off
	k, err := st.readValue(depth + 1)
	if err != nil {
		return "", err
	}
	switch k.Kind() {
	case KindText:
		return k.textVal, nil
	case KindInt:
		return strconv.FormatInt(k.intVal, 10), nil
	default:
		return "", st.fail(ErrShapeMismatch, start, "record key must be text, found %s", k.Kind())
	}
}

// readSwapped rebuilds the rows of a row-column swapped array. Cells holding
// the Unspecified placeholder leave the field out of that row.
func (st *decodeState) readSwapped(control byte, depth int) (*Value, error) {
	n, err := st.readCount(control, 2)
	if err != nil {
		return nil, err
	}
	var rows []*Value
	for ; n > 0; n-- {
		name, err := st.readKey(depth)
		if err != nil {
			return nil, err
		}
		start := st.off
		col, err := st.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		if col.Kind() != KindList {
			return nil, st.fail(ErrShapeMismatch, start, "swapped array column %q must be a list, found %s", name, col.Kind())
		}
		for i, cell := range col.listVal {
			if i == len(rows) {
				rows = append(rows, Record())
			}
			if !cell.IsUnspecified() {
				rows[i].Set(name, cell)
			}
		}
	}
	return List(rows...), nil
}

// readLengthless reads values until an Unspecified terminator, which is not
// part of the result.
func (st *decodeState) readLengthless(depth int) (*Value, error) {
	list := List()
	for {
		v, err := st.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		if v.IsUnspecified() {
			return list, nil
		}
		list.Append(v)
	}
}

// readJSONLiteral handles 0x0F: the next value is text holding JSON.
func (st *decodeState) readJSONLiteral(depth int) (*Value, error) {
	start := st.off
	s, err := st.readValue(depth + 1)
	if err != nil {
		return nil, err
	}
	if s.Kind() != KindText {
		return nil, st.fail(ErrShapeMismatch, start, "JSON literal must be text, found %s", s.Kind())
	}
	v, err := FromJSON([]byte(s.textVal))
	if err != nil {
		return nil, st.fail(ErrMalformedStream, start, "JSON literal: %v", err)
	}
	return v, nil
}
