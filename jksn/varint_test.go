package jksn

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUvarintRoundTrip(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x00}},
		{300, []byte{0x82, 0x2c}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x81, 0x80, 0x00}},
		{0x1fffff, []byte{0xff, 0xff, 0x7f}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{1<<63 - 1, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	}

	for _, tt := range tests {
		got := appendUvarint(nil, tt.v)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("appendUvarint(%d) mismatch (-want +got):\n%s", tt.v, diff)
		}
		if n := uvarintLen(tt.v); n != len(tt.want) {
			t.Errorf("uvarintLen(%d) = %d, want %d", tt.v, n, len(tt.want))
		}
		back, n := decodeUvarint(append(got, 0xaa))
		if back != tt.v || n != len(tt.want) {
			t.Errorf("decodeUvarint(%x) = %d, %d; want %d, %d", got, back, n, tt.v, len(tt.want))
		}
	}
}

func TestDecodeUvarintErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		wantN int
	}{
		{"empty", nil, 0},
		{"unterminated", []byte{0x81, 0x80}, 0},
		{"too_long", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, -1},
		{"overflow", []byte{0x81, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n := decodeUvarint(tt.input)
			if n != tt.wantN {
				t.Errorf("decodeUvarint(%x) n = %d, want %d", tt.input, n, tt.wantN)
			}
		})
	}
}

func TestEncodeIntFixed(t *testing.T) {
	tests := []struct {
		v    int64
		size int
		want []byte
	}{
		{-1, 1, []byte{0xff}},
		{0x7f, 1, []byte{0x7f}},
		{-129, 2, []byte{0xff, 0x7f}},
		{0x1234, 2, []byte{0x12, 0x34}},
		{-0x200000, 4, []byte{0xff, 0xe0, 0x00, 0x00}},
		{0x7fffffff, 4, []byte{0x7f, 0xff, 0xff, 0xff}},
		{40000, 0, []byte{0x82, 0xb8, 0x40}},
	}

	for _, tt := range tests {
		got := encodeInt(tt.v, tt.size)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("encodeInt(%d, %d) mismatch (-want +got):\n%s", tt.v, tt.size, diff)
		}
	}
}

func TestContentHash(t *testing.T) {
	tests := []struct {
		input string
		want  uint8
	}{
		{"", 0x00},
		{"a", 0x61},
		{"ab", 0xe3},
		{"abc", 0xa6},
		{"hello", 0x74},
		{"\x01\x02\x03", 0x86},
	}

	for _, tt := range tests {
		if got := contentHash([]byte(tt.input)); got != tt.want {
			t.Errorf("contentHash(%q) = 0x%02x, want 0x%02x", tt.input, got, tt.want)
		}
	}
}
