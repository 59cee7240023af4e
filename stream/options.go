package stream

import (
	"errors"
	"fmt"

	"github.com/arloliu/qatzstd/compress"
	"github.com/arloliu/qatzstd/internal/options"
	"go.uber.org/zap"
)

// Option configures a Compressor.
type Option = options.Option[*Compressor]

// WithLevel sets the compression level. Zero selects compress.DefaultLevel.
func WithLevel(level int) Option {
	return options.New(func(c *Compressor) error {
		lvl, err := compress.NormalizeLevel(level)
		if err != nil {
			return err
		}
		c.level = lvl

		return nil
	})
}

// WithLogger sets the logger used to report the chosen path and fallbacks.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *Compressor) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithEncoderFactory replaces the function that creates the codec context.
func WithEncoderFactory(factory func() compress.Encoder) Option {
	return options.New(func(c *Compressor) error {
		if factory == nil {
			return errors.New("encoder factory must not be nil")
		}
		c.newEncoder = factory

		return nil
	})
}

type decompressConfig struct {
	maxOutput uint32
}

// DecompressOption configures Decompress.
type DecompressOption = options.Option[*decompressConfig]

// WithMaxOutputSize rejects frames declaring more than n original bytes
// before any memory is allocated for them.
func WithMaxOutputSize(n int) DecompressOption {
	return options.New(func(c *decompressConfig) error {
		if n < 0 {
			return fmt.Errorf("max output size must be >= 0, got %d", n)
		}
		c.maxOutput = uint32(min(uint64(n), uint64(^uint32(0)))) //nolint: gosec

		return nil
	})
}
