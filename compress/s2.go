package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Codec compresses with S2 blocks. S2 blocks carry their own length.
type S2Codec struct{}

var _ Codec = S2Codec{}

// NewS2Codec creates an S2 baseline codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

// Name implements Codec.
func (S2Codec) Name() string {
	return "s2"
}

// Compress implements Codec.
func (S2Codec) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

// Decompress implements Codec.
func (S2Codec) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}

	return out, nil
}
