package compress

import (
	"errors"
	"fmt"
)

// Compression levels follow the zstd numbering.
const (
	MinLevel     = 1
	MaxLevel     = 22
	DefaultLevel = 3
)

// ErrInvalidLevel is returned for levels outside [MinLevel, MaxLevel].
var ErrInvalidLevel = errors.New("invalid compression level")

// NormalizeLevel maps level 0 to DefaultLevel and validates the rest.
func NormalizeLevel(level int) (int, error) {
	if level == 0 {
		return DefaultLevel, nil
	}
	if level < MinLevel || level > MaxLevel {
		return 0, fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidLevel, level, MinLevel, MaxLevel)
	}

	return level, nil
}
