package compress

import (
	"encoding/binary"
	"errors"
)

// Codec is a one-shot block codec used as a comparison baseline.
type Codec interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ErrBlockHeader is returned when a baseline block has a malformed length prefix.
var ErrBlockHeader = errors.New("invalid block length prefix")

// maxBlockSize bounds the length a baseline block may declare.
const maxBlockSize = 1 << 30

// Baselines returns the comparison codecs.
func Baselines() []Codec {
	return []Codec{NewLZ4Codec(), NewS2Codec()}
}

func readBlockLength(data []byte) (int, []byte, error) {
	n, used := binary.Uvarint(data)
	if used <= 0 || n > maxBlockSize {
		return 0, nil, ErrBlockHeader
	}

	return int(n), data[used:], nil
}
