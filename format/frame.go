// Package format defines the framed wire layout produced by the compressor.
//
// A frame is a 4-byte little-endian original length followed by the codec's
// compressed stream:
//
//	offset 0, length 4: uncompressed length (uint32, little-endian)
//	offset 4, length N: zstd stream (one or more concatenated zstd frames)
//
// Nothing in the frame records whether the accelerator produced the payload;
// decompression is identical for both paths.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the size of the original-length header.
const HeaderSize = 4

// MaxOriginalSize is the largest input that fits the length header.
const MaxOriginalSize = math.MaxUint32

var (
	// ErrShortHeader is returned when fewer than HeaderSize bytes are available.
	ErrShortHeader = errors.New("frame shorter than length header")
	// ErrTooLarge is returned when an input does not fit the 32-bit length header.
	ErrTooLarge = errors.New("input exceeds frame length limit")
)

// AppendHeader appends the header for an input of originalLen bytes.
func AppendHeader(dst []byte, originalLen int) ([]byte, error) {
	if err := checkLength(originalLen); err != nil {
		return dst, err
	}

	return binary.LittleEndian.AppendUint32(dst, uint32(originalLen)), nil //nolint: gosec
}

// PutHeader writes the header into the first HeaderSize bytes of dst.
func PutHeader(dst []byte, originalLen int) error {
	if len(dst) < HeaderSize {
		return ErrShortHeader
	}
	if err := checkLength(originalLen); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, uint32(originalLen)) //nolint: gosec

	return nil
}

// ParseHeader decodes the original length from the start of frame.
func ParseHeader(frame []byte) (uint32, error) {
	if len(frame) < HeaderSize {
		return 0, ErrShortHeader
	}

	return binary.LittleEndian.Uint32(frame), nil
}

func checkLength(n int) error {
	if n < 0 || uint64(n) > MaxOriginalSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}

	return nil
}

// Path identifies which producer generated a frame's payload.
// It is reported to callers and never written to the wire.
type Path uint8

const (
	PathUnknown     Path = 0x0 // PathUnknown means no compression has run yet.
	PathSoftware    Path = 0x1 // PathSoftware means the codec's own match finder was used.
	PathAccelerated Path = 0x2 // PathAccelerated means an accelerator session was registered.
)

func (p Path) String() string {
	switch p {
	case PathSoftware:
		return "Software"
	case PathAccelerated:
		return "Accelerated"
	default:
		return "Unknown"
	}
}
