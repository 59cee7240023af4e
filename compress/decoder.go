package compress

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTruncated is returned when the compressed input ends before the
	// expected number of bytes was decoded.
	ErrTruncated = errors.New("compressed stream truncated")
	// ErrSizeMismatch is returned when the compressed input decodes to more
	// bytes than expected.
	ErrSizeMismatch = errors.New("decompressed size exceeds expected length")
	// ErrCorrupt wraps any other codec failure while decoding.
	ErrCorrupt = errors.New("corrupt compressed stream")
)

// Decoder is a zstd decompression context. It accepts one or more
// concatenated zstd frames, whichever producer generated them.
type Decoder interface {
	// Decompress decodes src until dst is full and verifies that src holds
	// nothing more.
	Decompress(dst []byte, src io.Reader) error
	// Close releases the context. It is safe to call more than once.
	Close()
}

type zstdDecoder struct {
	closed bool
}

var _ Decoder = (*zstdDecoder)(nil)

// NewDecoder returns a decompression context.
func NewDecoder() Decoder {
	return &zstdDecoder{}
}

func (d *zstdDecoder) Decompress(dst []byte, src io.Reader) error {
	if d.closed {
		return ErrClosed
	}

	rd := acquireStreamReader()
	defer rd.release()

	if err := rd.reset(src); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	n, err := io.ReadFull(rd, dst)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: decoded %d of %d bytes", ErrTruncated, n, len(dst))
		}

		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var probe [1]byte
	extra, err := io.ReadFull(rd, probe[:])
	switch {
	case extra > 0:
		return fmt.Errorf("%w: more than %d bytes", ErrSizeMismatch, len(dst))
	case errors.Is(err, io.EOF):
		return nil
	default:
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
}

func (d *zstdDecoder) Close() {
	d.closed = true
}

// streamReader is the software zstd decoder of a backend.
type streamReader interface {
	io.Reader
	reset(r io.Reader) error
	release()
}
