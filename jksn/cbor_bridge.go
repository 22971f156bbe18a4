package jksn

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode writes Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
var cborEncMode cbor.EncMode

// cborDecMode decodes maps into map[string]any so the result can go
// straight through FromAny.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("jksn: CBOR encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("jksn: CBOR decoder initialization failed: " + err.Error())
	}
}

// FromCBOR decodes one CBOR data item into a Value. Map keys must be text.
func FromCBOR(data []byte) (*Value, error) {
	var x any
	if err := cborDecMode.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("CBOR parse error: %w", err)
	}
	return FromAny(x)
}

// ToCBOR encodes v as deterministic CBOR. Absent and unspecified values
// follow the same rules as Value.Interface.
func ToCBOR(v *Value) ([]byte, error) {
	data, err := cborEncMode.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("CBOR encode error: %w", err)
	}
	return data, nil
}
