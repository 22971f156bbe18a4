// Package jksn implements JKSN, a compact self-describing binary format for
// the JSON value model.
//
// JKSN is designed to be:
//   - Tagged: every value starts with one control byte naming its type,
//     and small lengths and integers live inside that byte
//   - Compact: integers are delta-encoded against the previous integer,
//     repeated strings and blobs become one-byte back-references
//   - Table-aware: arrays of records may be written column by column
//   - Round-trippable to JSON
//
// # Data Model
//
// Scalars: absent, null, bool, int, float, text, blob
// Containers: list, record
// Special: unspecified (missing cell of a column-major array)
//
// # Control Bytes
//
//	0x00-0x03  absent, null, false, true
//	0x10-0x1F  integers (0..10 inline, 1/2/4-byte or varint)
//	0x20-0x2F  NaN, double, float32 (read only), -Inf, +Inf
//	0x30-0x3F  UTF-16 text, 0x3C back-reference
//	0x40-0x4F  UTF-8 text
//	0x50-0x5F  blob, 0x5C back-reference
//	0x70-0x7F  cache refresh / ignorable values
//	0x80-0x8F  array
//	0x90-0x9F  record
//	0xA0-0xAF  unspecified, row-column swapped array
//	0xC8       lengthless array (read only)
//	0xD0-0xDF  delta-encoded integers
//	0xF0-0xFF  checksums (skipped), pragma
//
// Lengths and counts up to a family-specific limit sit in the low nibble;
// larger ones follow as a 1-byte (0xE), 2-byte (0xD) or variable-length
// (0xF) field. Variable-length integers are big-endian base-128.
//
// # Example
//
//	v := jksn.List(
//		jksn.Record(jksn.F("id", jksn.Int(1)), jksn.F("name", jksn.Text("ana"))),
//		jksn.Record(jksn.F("id", jksn.Int(2)), jksn.F("name", jksn.Text("luis"))),
//	)
//	data, err := jksn.Encode(v)
//	...
//	back, err := jksn.Decode(data)
//
// Encoders and decoders keep their caches per call; concurrent calls never
// share state.
package jksn
