package compress

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor hash tables for reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Codec compresses with LZ4 blocks prefixed by the uvarint original length,
// so decompression allocates exactly once.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

// NewLZ4Codec creates an LZ4 baseline codec.
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{}
}

// Name implements Codec.
func (LZ4Codec) Name() string {
	return "lz4"
}

// Compress implements Codec.
func (LZ4Codec) Compress(data []byte) ([]byte, error) {
	dst := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
	hdr := binary.PutUvarint(dst, uint64(len(data)))
	if len(data) == 0 {
		return dst[:hdr], nil
	}

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[hdr:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible input: lz4 leaves it to the caller to store raw bytes.
		// Store it as a literal-only block instead.
		n, err = literalBlock(dst[hdr:], data)
		if err != nil {
			return nil, err
		}
	}

	return dst[:hdr+n], nil
}

// Decompress implements Codec.
func (LZ4Codec) Decompress(data []byte) ([]byte, error) {
	size, block, err := readBlockLength(data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}

	n, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", n, size)
	}

	return out, nil
}

// literalBlock writes src as a single LZ4 sequence made only of literals.
func literalBlock(dst, src []byte) (int, error) {
	need := 1 + (len(src)-15)/255 + 1 + len(src)
	if len(dst) < need {
		return 0, lz4.ErrInvalidSourceShortBuffer
	}

	n := 0
	if len(src) < 15 {
		dst[n] = byte(len(src) << 4)
		n++
	} else {
		dst[n] = 0xF0
		n++
		rest := len(src) - 15
		for rest >= 255 {
			dst[n] = 255
			n++
			rest -= 255
		}
		dst[n] = byte(rest)
		n++
	}
	n += copy(dst[n:], src)

	return n, nil
}
