package jksn

import (
	"encoding/hex"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

type wireVector struct {
	Name  string    `yaml:"name"`
	Value yaml.Node `yaml:"value"`
	Hex   string    `yaml:"hex"`
}

func loadVectors(t *testing.T) []wireVector {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "vectors.yaml"))
	if err != nil {
		t.Fatalf("failed to read vectors: %v", err)
	}
	var vectors []wireVector
	if err := yaml.Unmarshal(data, &vectors); err != nil {
		t.Fatalf("failed to parse vectors: %v", err)
	}
	if len(vectors) == 0 {
		t.Fatal("no vectors loaded")
	}
	return vectors
}

// TestWireVectors pins the exact bytes of the format.
func TestWireVectors(t *testing.T) {
	for _, vec := range loadVectors(t) {
		t.Run(vec.Name, func(t *testing.T) {
			v, err := FromYAMLNode(&vec.Value)
			if err != nil {
				t.Fatalf("FromYAMLNode: %v", err)
			}

			got, err := Encode(v, WithHeader(false))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if diff := cmp.Diff(vec.Hex, hex.EncodeToString(got)); diff != "" {
				t.Errorf("encoding of %s mismatch (-want +got):\n%s", v, diff)
			}

			want, err := hex.DecodeString(vec.Hex)
			if err != nil {
				t.Fatalf("bad hex in vector: %v", err)
			}
			back, err := Decode(want)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !back.Equal(v) {
				t.Errorf("Decode(%s) = %s, want %s", vec.Hex, back, v)
			}
		})
	}
}

func TestEncodeHeader(t *testing.T) {
	v := List(Int(1), Text("two"), Null())

	withHeader, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(string(withHeader), "jk!") {
		t.Fatalf("expected jk! header, got %x", withHeader[:3])
	}

	withoutHeader, err := Encode(v, WithHeader(false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if diff := cmp.Diff(withHeader[len(Magic):], withoutHeader); diff != "" {
		t.Errorf("body differs with and without header (-with +without):\n%s", diff)
	}

	a, err := Decode(withHeader)
	if err != nil {
		t.Fatalf("Decode with header: %v", err)
	}
	b, err := Decode(withoutHeader)
	if err != nil {
		t.Fatalf("Decode without header: %v", err)
	}
	if !a.Equal(b) || !a.Equal(v) {
		t.Errorf("header optionality: got %s and %s, want %s", a, b, v)
	}
}

func TestIntEncoding(t *testing.T) {
	tests := []struct {
		v       int64
		control byte
		dataLen int
	}{
		{0, 0x10, 0},
		{10, 0x1a, 0},
		{11, 0x1d, 1},
		{-128, 0x1d, 1},
		{-129, 0x1c, 2},
		{32767, 0x1c, 2},
		{32768, 0x1f, 3},
		{0x1fffff, 0x1f, 3},
		{0x200000, 0x1b, 4},
		{-0x1fffff, 0x1e, 3},
		{-0x200000, 0x1b, 4},
		{math.MaxInt32, 0x1b, 4},
		{math.MinInt32, 0x1b, 4},
	}

	for _, tt := range tests {
		control, data := intEncoding(tt.v)
		if control != tt.control || len(data) != tt.dataLen {
			t.Errorf("intEncoding(%d) = 0x%02x +%d bytes, want 0x%02x +%d bytes",
				tt.v, control, len(data), tt.control, tt.dataLen)
		}
	}
}

func TestDeltaEncoding(t *testing.T) {
	tests := []struct {
		delta   int64
		control byte
		dataLen int
	}{
		{0, 0xd0, 0},
		{5, 0xd5, 0},
		{-1, 0xda, 0},
		{-5, 0xd6, 0},
		{6, 0xdd, 1},
		{-6, 0xdd, 1},
		{200, 0xdc, 2},
		{40000, 0xdf, 3},
		{-40000, 0xde, 3},
		{0x200000, 0xdb, 4},
	}

	for _, tt := range tests {
		control, data := deltaEncoding(tt.delta)
		if control != tt.control || len(data) != tt.dataLen {
			t.Errorf("deltaEncoding(%d) = 0x%02x +%d bytes, want 0x%02x +%d bytes",
				tt.delta, control, len(data), tt.control, tt.dataLen)
		}
	}
}

func TestTextFamilySelection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		control byte
	}{
		{"ascii_prefers_utf8", "hi", 0x42},
		{"tie_prefers_utf8", "é", 0x42},  // 2 bytes either way
		{"cjk_prefers_utf16", "中", 0x31}, // 3 bytes vs 2
		{"utf8_inline_limit", strings.Repeat("a", 12), 0x4c},
		{"utf8_one_byte_length", strings.Repeat("a", 13), 0x4e},
		{"utf16_inline_limit", strings.Repeat("中", 11), 0x3b},
		{"utf16_one_byte_length", strings.Repeat("中", 12), 0x3e},
		{"utf8_two_byte_length", strings.Repeat("a", 300), 0x4d},
		{"utf8_varint_length", strings.Repeat("a", 70000), 0x4f},
		{"invalid_utf8_kept_as_bytes", "\xff\xfe\xfd\xfc", 0x44},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := encodeText(Text(tt.input), tt.input)
			if n.enc.control != tt.control {
				t.Errorf("control = 0x%02x, want 0x%02x", n.enc.control, tt.control)
			}

			data, err := Encode(Text(tt.input))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			back, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if s, _ := back.AsText(); s != tt.input {
				t.Errorf("round trip lost text: got %q", s)
			}
		})
	}
}

func TestBlobLengthForms(t *testing.T) {
	tests := []struct {
		size    int
		control byte
	}{
		{0, 0x50},
		{11, 0x5b},
		{12, 0x5e},
		{255, 0x5e},
		{256, 0x5d},
		{65535, 0x5d},
		{65536, 0x5f},
	}

	for _, tt := range tests {
		b := make([]byte, tt.size)
		for i := range b {
			b[i] = byte(i * 7)
		}
		n := encodeBlob(Blob(b), b)
		if n.enc.control != tt.control {
			t.Errorf("blob of %d bytes: control = 0x%02x, want 0x%02x", tt.size, n.enc.control, tt.control)
		}

		data, err := Encode(Blob(b))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		back, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode blob of %d bytes: %v", tt.size, err)
		}
		if !back.Equal(Blob(b)) {
			t.Errorf("blob of %d bytes did not round trip", tt.size)
		}
	}
}

func TestContainerCountForms(t *testing.T) {
	tests := []struct {
		count   int
		control byte
	}{
		{0, 0x80},
		{12, 0x8c},
		{13, 0x8e},
		{256, 0x8d},
		{70000, 0x8f},
	}

	for _, tt := range tests {
		elems := make([]*Value, tt.count)
		for i := range elems {
			elems[i] = Null()
		}
		data, err := Encode(List(elems...), WithHeader(false))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if data[0] != tt.control {
			t.Errorf("list of %d: control = 0x%02x, want 0x%02x", tt.count, data[0], tt.control)
		}
		back, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode list of %d: %v", tt.count, err)
		}
		if back.Len() != tt.count {
			t.Errorf("list of %d decoded with %d elements", tt.count, back.Len())
		}
	}
}

// TestBackReferenceShrinksOutput checks that a repeated string costs two
// bytes the second time.
func TestBackReferenceShrinksOutput(t *testing.T) {
	s := "a string long enough to matter"
	v := List(Text(s), Text(s))

	cached, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	uncached, err := Encode(v, WithCache(false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(cached) >= len(uncached) {
		t.Errorf("cached encoding is %d bytes, uncached %d; expected cached to be shorter", len(cached), len(uncached))
	}
	if saved := len(uncached) - len(cached); saved != len(s) {
		t.Errorf("back-reference saved %d bytes, want %d", saved, len(s))
	}

	for _, data := range [][]byte{cached, uncached} {
		back, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !back.Equal(v) {
			t.Errorf("Decode = %s, want %s", back, v)
		}
	}
}

// TestBackReferenceAfterShortString covers a one-byte string landing in the
// slot of a cached string: the decoder overwrites the slot, so the encoder
// must not refer back to the evicted string.
func TestBackReferenceAfterShortString(t *testing.T) {
	var short string
	for c := 0; c < 256; c++ {
		if contentHash([]byte{byte(c)}) == contentHash([]byte("hello")) {
			short = string(rune(c))
			break
		}
	}
	if short == "" {
		t.Fatal("no single byte collides with \"hello\"")
	}

	v := List(Text("hello"), Text(short), Text("hello"))
	data, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !back.Equal(v) {
		t.Errorf("Decode = %s, want %s", back, v)
	}
}

func TestDeltaShrinksMonotonicRuns(t *testing.T) {
	monotonic, err := Encode(List(Int(1000), Int(1001), Int(1002)), WithHeader(false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	scattered, err := Encode(List(Int(1000), Int(50000), Int(-7)), WithHeader(false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Both start with the list header and the 3-byte first element.
	const prefix = 1 + 3
	if tail, other := len(monotonic)-prefix, len(scattered)-prefix; tail >= other {
		t.Errorf("elements 2 and 3 take %d bytes with deltas, %d without; expected fewer", tail, other)
	}

	noDelta, err := Encode(List(Int(1000), Int(1001), Int(1002)), WithHeader(false), WithDelta(false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(noDelta) <= len(monotonic) {
		t.Errorf("WithDelta(false) produced %d bytes, delta form %d", len(noDelta), len(monotonic))
	}
}

func TestSwapHeuristic(t *testing.T) {
	table := List(
		Record(F("a", Int(1)), F("b", Int(2))),
		Record(F("a", Int(3)), F("b", Int(4))),
	)

	swapped, err := Encode(table, WithHeader(false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if swapped[0]&0xf0 != 0xa0 {
		t.Errorf("expected swapped form, control 0x%02x", swapped[0])
	}
	straight, err := Encode(table, WithHeader(false), WithSwap(false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if straight[0]&0xf0 != 0x80 {
		t.Errorf("expected straight form with WithSwap(false), control 0x%02x", straight[0])
	}

	for _, data := range [][]byte{swapped, straight} {
		back, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !back.Equal(table) {
			t.Errorf("Decode = %s, want %s", back, table)
		}
	}
}

func TestSwappable(t *testing.T) {
	tests := []struct {
		name string
		rows []*Value
		want bool
	}{
		{"empty", nil, false},
		{"records", []*Value{Record(F("a", Int(1))), Record(F("b", Int(2)))}, true},
		{"empty_record", []*Value{Record(F("a", Int(1))), Record()}, false},
		{"null_row", []*Value{Record(F("a", Int(1))), Null()}, false},
		{"absent_row", []*Value{Record(F("a", Int(1))), Absent()}, false},
		{"list_row", []*Value{List(Int(1))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := swappable(tt.rows); got != tt.want {
				t.Errorf("swappable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNodeSizeDepth(t *testing.T) {
	// [[1, [2]]]: 1 + (1 + (1 + (1 + 1)))
	v := List(List(Int(1), List(Int(2))))
	st := &encodeState{cfg: defaultEncodeConfig()}
	n, err := st.encodeValue(v)
	if err != nil {
		t.Fatalf("encodeValue: %v", err)
	}

	tests := []struct {
		depth int
		want  int
	}{
		{0, 5},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 5},
	}
	for _, tt := range tests {
		if got := n.size(tt.depth); got != tt.want {
			t.Errorf("size(%d) = %d, want %d", tt.depth, got, tt.want)
		}
	}
}

func TestEncodeUnknownKind(t *testing.T) {
	_, err := Encode(&Value{kind: Kind(99)})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Encode(unknown kind) error = %v, want ErrShapeMismatch", err)
	}
}
