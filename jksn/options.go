package jksn

import "log/slog"

// DefaultMaxDepth is the default nesting limit of the decoder.
const DefaultMaxDepth = 512

type encodeConfig struct {
	header bool
	swap   bool
	delta  bool
	cache  bool
}

func defaultEncodeConfig() encodeConfig {
	return encodeConfig{header: true, swap: true, delta: true, cache: true}
}

// EncodeOption configures an Encoder.
type EncodeOption func(*encodeConfig)

// WithHeader controls whether the "jk!" magic header is written (default true).
func WithHeader(on bool) EncodeOption {
	return func(c *encodeConfig) {
		c.header = on
	}
}

// WithSwap controls whether arrays of records may be written in row-column
// swapped form when that is smaller (default true).
func WithSwap(on bool) EncodeOption {
	return func(c *encodeConfig) {
		c.swap = on
	}
}

// WithDelta controls delta encoding of consecutive integers (default true).
func WithDelta(on bool) EncodeOption {
	return func(c *encodeConfig) {
		c.delta = on
	}
}

// WithCache controls back-references to repeated strings and blobs
// (default true).
func WithCache(on bool) EncodeOption {
	return func(c *encodeConfig) {
		c.cache = on
	}
}

type decodeConfig struct {
	logger   *slog.Logger
	maxDepth int
}

func defaultDecodeConfig() decodeConfig {
	return decodeConfig{
		logger:   slog.New(slog.DiscardHandler),
		maxDepth: DefaultMaxDepth,
	}
}

// DecodeOption configures a Decoder.
type DecodeOption func(*decodeConfig)

// WithLogger sets the logger that receives decoder warnings, such as
// skipped checksum blocks. By default warnings are discarded.
func WithLogger(logger *slog.Logger) DecodeOption {
	return func(c *decodeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxDepth sets how deeply containers may nest (default DefaultMaxDepth).
func WithMaxDepth(depth int) DecodeOption {
	return func(c *decodeConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}
