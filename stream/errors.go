package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrReused is returned when a Compressor runs a second time.
	ErrReused = errors.New("compressor already used")
	// ErrFallbackRejected is returned when the codec refuses to enable software
	// fallback for an accelerated stream. The call fails rather than running
	// the accelerator without a safety net.
	ErrFallbackRejected = errors.New("codec rejected software fallback")
	// ErrChunk wraps a codec failure while compressing a chunk.
	ErrChunk = errors.New("chunk compression failed")
	// ErrSourceEnded is returned when the input ends before its declared length.
	ErrSourceEnded = errors.New("input ended before declared length")

	// ErrFraming is the parent of all frame layout errors.
	ErrFraming = errors.New("invalid compressed frame")
	// ErrShortFrame is returned for input shorter than the length header.
	ErrShortFrame = fmt.Errorf("%w: shorter than length header", ErrFraming)
	// ErrTruncated is returned when the payload ends before the declared length is decoded.
	ErrTruncated = fmt.Errorf("%w: payload truncated", ErrFraming)
	// ErrSizeMismatch is returned when the payload decodes to more than the declared length.
	ErrSizeMismatch = fmt.Errorf("%w: payload exceeds declared length", ErrFraming)
	// ErrCorrupt is returned when the codec cannot decode the payload.
	ErrCorrupt = errors.New("corrupt compressed payload")
	// ErrOutputLimit is returned when the declared length exceeds the configured limit.
	ErrOutputLimit = errors.New("declared length exceeds output limit")
)
