package stream

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arloliu/qatzstd/chunk"
	"github.com/arloliu/qatzstd/compress"
	"github.com/arloliu/qatzstd/format"
	"github.com/arloliu/qatzstd/internal/options"
)

// Decompress reads a frame of compressedLen bytes from src and returns the
// original payload. It never uses the accelerator.
func Decompress(src chunk.Reader, compressedLen int, opts ...DecompressOption) ([]byte, error) {
	cfg := decompressConfig{maxOutput: math.MaxUint32}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	if compressedLen < format.HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, compressedLen)
	}

	var hdr [format.HeaderSize]byte
	if n, err := chunk.ReadFull(src, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, n)
		}

		return nil, fmt.Errorf("read frame header: %w", err)
	}

	originalLen, err := format.ParseHeader(hdr[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShortFrame, err)
	}
	if originalLen > cfg.maxOutput {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrOutputLimit, originalLen, cfg.maxOutput)
	}

	payload := chunk.Limit(src, compressedLen-format.HeaderSize)
	dst := make([]byte, originalLen)

	dec := compress.NewDecoder()
	defer dec.Close()

	if err := dec.Decompress(dst, chunk.NewIOReader(payload)); err != nil {
		return nil, classify(err, payload)
	}

	return dst, nil
}

// DecompressBytes decompresses a frame held in one slice.
func DecompressBytes(frame []byte, opts ...DecompressOption) ([]byte, error) {
	return Decompress(chunk.FromBytes(frame, 0).Iterator(), len(frame), opts...)
}

// classify maps codec errors onto the frame error taxonomy. A codec error
// raised after the payload was fully consumed means the payload stopped
// short of the end of the zstd stream.
func classify(err error, payload chunk.Reader) error {
	switch {
	case errors.Is(err, compress.ErrTruncated):
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	case errors.Is(err, compress.ErrSizeMismatch):
		return fmt.Errorf("%w: %w", ErrSizeMismatch, err)
	case errors.Is(err, compress.ErrCorrupt) && payload.Len() == 0:
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	default:
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
}
