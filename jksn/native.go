package jksn

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// ============================================================
// Native Go bridge
// ============================================================

// FromAny converts a Go value into a Value. Supported are nil, bool, the
// integer and float types, string, []byte, json.Number, *Value, and slices,
// arrays and string-keyed maps of those. Map fields come out sorted by key.
func FromAny(x any) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		if t == nil {
			return Absent(), nil
		}
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case []byte:
		return Blob(t), nil
	case json.Number:
		return jsonNumber(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t), nil
	case []any:
		return fromSlice(reflect.ValueOf(t))
	case map[string]any:
		return fromMap(reflect.ValueOf(t))
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return fromSlice(rv)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return fromMap(rv)
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromAny(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("jksn: unsupported Go type %T", x)
}

func fromUint(u uint64) *Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

func fromSlice(rv reflect.Value) (*Value, error) {
	elems := make([]*Value, rv.Len())
	for i := range elems {
		v, err := FromAny(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		elems[i] = v
	}
	return List(elems...), nil
}

func fromMap(rv reflect.Value) (*Value, error) {
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		v, err := FromAny(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		fields = append(fields, F(k, v))
	}
	return Record(fields...), nil
}

// Interface converts v to plain Go values: nil, bool, int64, float64,
// string, []byte, []any and map[string]any. Absent and unspecified values
// become nil in lists and are left out of maps.
func (v *Value) Interface() any {
	switch v.Kind() {
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal
	case KindFloat:
		return v.floatVal
	case KindText:
		return v.textVal
	case KindBlob:
		return v.blobVal
	case KindList:
		out := make([]any, len(v.listVal))
		for i, elem := range v.listVal {
			out[i] = elem.Interface()
		}
		return out
	case KindRecord:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			if f.Value.IsAbsent() || f.Value.IsUnspecified() {
				continue
			}
			out[f.Key] = f.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// Marshal encodes a Go value (see FromAny) as a JKSN frame.
func Marshal(x any, opts ...EncodeOption) ([]byte, error) {
	v, err := FromAny(x)
	if err != nil {
		return nil, err
	}
	return Encode(v, opts...)
}

// Unmarshal decodes a JKSN frame into plain Go values (see Value.Interface).
func Unmarshal(data []byte, opts ...DecodeOption) (any, error) {
	v, err := Decode(data, opts...)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}
