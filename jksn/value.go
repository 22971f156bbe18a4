package jksn

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the shape of a JKSN value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindText
	KindBlob
	KindList
	KindRecord
	KindUnspecified // filler for missing cells of a swapped array
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindUnspecified:
		return "unspecified"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Value is a JKSN value. Only the field matching kind is meaningful.
// A nil *Value behaves as an absent value.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64
	floatVal float64
	textVal  string
	blobVal  []byte

	listVal []*Value
	fields  []Field
}

// Field is one key/value pair of a record. Records keep their fields in
// insertion order, which is also the order they are encoded in.
type Field struct {
	Key   string
	Value *Value
}

// ============================================================
// Constructors
// ============================================================

// Absent creates an absent value (a value that is not there at all).
func Absent() *Value {
	return &Value{kind: KindAbsent}
}

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// Float creates a floating point value.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Text creates a string value.
func Text(v string) *Value {
	return &Value{kind: KindText, textVal: v}
}

// Blob creates a binary value. The slice is not copied.
func Blob(v []byte) *Value {
	if v == nil {
		v = []byte{}
	}
	return &Value{kind: KindBlob, blobVal: v}
}

// List creates a list value.
func List(values ...*Value) *Value {
	if values == nil {
		values = []*Value{}
	}
	return &Value{kind: KindList, listVal: values}
}

// Record creates a record from fields, in order. A repeated key keeps the
// position of its first occurrence and the value of its last, as Set does.
func Record(fields ...Field) *Value {
	rec := &Value{kind: KindRecord, fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		rec.Set(f.Key, f.Value)
	}
	return rec
}

// Unspecified creates the placeholder used for missing cells of a
// row-column swapped array. It is distinct from both Null and Absent.
func Unspecified() *Value {
	return &Value{kind: KindUnspecified}
}

// F creates a Field for use in Record construction.
func F(key string, value *Value) Field {
	return Field{Key: key, Value: value}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindAbsent
	}
	return v.kind
}

// IsAbsent reports whether v is absent.
func (v *Value) IsAbsent() bool {
	return v.Kind() == KindAbsent
}

// IsNull reports whether v is null.
func (v *Value) IsNull() bool {
	return v.Kind() == KindNull
}

// IsUnspecified reports whether v is the swapped-array placeholder.
func (v *Value) IsUnspecified() bool {
	return v.Kind() == KindUnspecified
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if err := v.expect(KindBool); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsInt returns the integer value.
func (v *Value) AsInt() (int64, error) {
	if err := v.expect(KindInt); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if err := v.expect(KindFloat); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsText returns the string value.
func (v *Value) AsText() (string, error) {
	if err := v.expect(KindText); err != nil {
		return "", err
	}
	return v.textVal, nil
}

// AsBlob returns the binary value.
func (v *Value) AsBlob() ([]byte, error) {
	if err := v.expect(KindBlob); err != nil {
		return nil, err
	}
	return v.blobVal, nil
}

// AsList returns the list elements.
func (v *Value) AsList() ([]*Value, error) {
	if err := v.expect(KindList); err != nil {
		return nil, err
	}
	return v.listVal, nil
}

// AsRecord returns the record fields.
func (v *Value) AsRecord() ([]Field, error) {
	if err := v.expect(KindRecord); err != nil {
		return nil, err
	}
	return v.fields, nil
}

func (v *Value) expect(k Kind) error {
	if v.Kind() != k {
		return fmt.Errorf("jksn: expected %s, got %s", k, v.Kind())
	}
	return nil
}

// Number returns a numeric value as float64 if int or float.
func (v *Value) Number() (float64, bool) {
	switch v.Kind() {
	case KindInt:
		return float64(v.intVal), true
	case KindFloat:
		return v.floatVal, true
	default:
		return 0, false
	}
}

// Len returns the length of a list or record, zero otherwise.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindList:
		return len(v.listVal)
	case KindRecord:
		return len(v.fields)
	default:
		return 0
	}
}

// Get returns a record field by key.
func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != KindRecord {
		return nil, false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Index returns the i-th element of a list.
func (v *Value) Index(i int) (*Value, error) {
	if v.Kind() != KindList {
		return nil, fmt.Errorf("jksn: not a list")
	}
	if i < 0 || i >= len(v.listVal) {
		return nil, fmt.Errorf("jksn: index %d out of bounds (len=%d)", i, len(v.listVal))
	}
	return v.listVal[i], nil
}

// ============================================================
// Mutators
// ============================================================

// Set sets a record field, replacing an existing field with the same key.
func (v *Value) Set(key string, val *Value) {
	if v.Kind() != KindRecord {
		panic("jksn: cannot set on non-record")
	}
	for i := range v.fields {
		if v.fields[i].Key == key {
			v.fields[i].Value = val
			return
		}
	}
	v.fields = append(v.fields, Field{Key: key, Value: val})
}

// Append adds a value to a list.
func (v *Value) Append(val *Value) {
	if v.Kind() != KindList {
		panic("jksn: cannot append to non-list")
	}
	v.listVal = append(v.listVal, val)
}

// ============================================================
// Comparison
// ============================================================

// Equal reports whether v and w hold the same value. Int and Float are
// both numbers and compare by numeric value; NaN equals NaN. Records
// compare as key sets, ignoring field order and fields holding an absent
// value.
func (v *Value) Equal(w *Value) bool {
	vk, wk := v.Kind(), w.Kind()
	if vn, ok := v.Number(); ok {
		wn, ok := w.Number()
		if !ok {
			return false
		}
		if vk == KindInt && wk == KindInt {
			return v.intVal == w.intVal
		}
		if math.IsNaN(vn) || math.IsNaN(wn) {
			return math.IsNaN(vn) && math.IsNaN(wn)
		}
		return vn == wn
	}
	if vk != wk {
		return false
	}
	switch vk {
	case KindAbsent, KindNull, KindUnspecified:
		return true
	case KindBool:
		return v.boolVal == w.boolVal
	case KindText:
		return v.textVal == w.textVal
	case KindBlob:
		return bytes.Equal(v.blobVal, w.blobVal)
	case KindList:
		if len(v.listVal) != len(w.listVal) {
			return false
		}
		for i := range v.listVal {
			if !v.listVal[i].Equal(w.listVal[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if v.presentFields() != w.presentFields() {
			return false
		}
		for _, f := range v.fields {
			if f.Value.IsAbsent() {
				continue
			}
			other, ok := w.Get(f.Key)
			if !ok || !f.Value.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// presentFields counts the fields of a record that do not hold an absent
// value; such fields are indistinguishable from missing ones.
func (v *Value) presentFields() int {
	n := 0
	for _, f := range v.fields {
		if !f.Value.IsAbsent() {
			n++
		}
	}
	return n
}

// String renders v in a compact JSON-like debug form.
func (v *Value) String() string {
	var sb strings.Builder
	v.writeDebug(&sb)
	return sb.String()
}

func (v *Value) writeDebug(sb *strings.Builder) {
	switch v.Kind() {
	case KindAbsent:
		sb.WriteString("undefined")
	case KindNull:
		sb.WriteString("null")
	case KindUnspecified:
		sb.WriteString("<unspecified>")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.boolVal))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.intVal, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.floatVal, 'g', -1, 64))
	case KindText:
		sb.WriteString(strconv.Quote(v.textVal))
	case KindBlob:
		fmt.Fprintf(sb, "blob(%x)", v.blobVal)
	case KindList:
		sb.WriteByte('[')
		for i, elem := range v.listVal {
			if i > 0 {
				sb.WriteByte(',')
			}
			elem.writeDebug(sb)
		}
		sb.WriteByte(']')
	case KindRecord:
		sb.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(f.Key))
			sb.WriteByte(':')
			f.Value.writeDebug(sb)
		}
		sb.WriteByte('}')
	}
}
