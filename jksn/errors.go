package jksn

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by Encode or Decode wraps exactly one
// of these, so callers can classify it with errors.Is.
var (
	ErrMalformedStream         = errors.New("jksn: malformed stream")
	ErrUnresolvedBackReference = errors.New("jksn: unresolved back-reference")
	ErrInvalidDelta            = errors.New("jksn: delta integer without a preceding integer")
	ErrUnsupportedEncoding     = errors.New("jksn: unsupported encoding")
	ErrShapeMismatch           = errors.New("jksn: shape mismatch")
	ErrInternalConsistency     = errors.New("jksn: internal consistency failure")
)

// DecodeError describes where and why decoding failed.
type DecodeError struct {
	Kind   error // one of the Err* kinds above
	Reason string
	Offset int
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%v: %s at offset %d", e.Kind, e.Reason, e.Offset)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

// Unwrap returns the error kind.
func (e *DecodeError) Unwrap() error {
	return e.Kind
}
