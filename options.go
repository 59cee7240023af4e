package qatzstd

import (
	"github.com/arloliu/qatzstd/accel"
	"github.com/arloliu/qatzstd/internal/options"
	"go.uber.org/zap"
)

// Option configures a Compressor.
type Option = options.Option[*Compressor]

// WithConfig replaces the whole configuration. Options applied after it
// override individual fields.
func WithConfig(cfg Config) Option {
	return options.NoError(func(c *Compressor) {
		c.cfg = cfg
	})
}

// WithLevel sets the compression level.
func WithLevel(level int) Option {
	return options.NoError(func(c *Compressor) {
		c.cfg.Level = level
	})
}

// WithPoolSize sets the idle accelerator session bound.
func WithPoolSize(n int) Option {
	return options.NoError(func(c *Compressor) {
		c.cfg.PoolSize = n
	})
}

// WithAcceleration enables or disables accelerator use.
func WithAcceleration(enabled bool) Option {
	return options.NoError(func(c *Compressor) {
		c.cfg.AccelEnabled = enabled
	})
}

// WithDriver sets the accelerator driver. Without it the compressor uses
// accel.UnavailableDriver and every call runs in software.
func WithDriver(driver accel.Driver) Option {
	return options.NoError(func(c *Compressor) {
		c.driver = driver
	})
}

// WithLogger sets the logger passed to the device, the pool and each call.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *Compressor) {
		if logger != nil {
			c.logger = logger
		}
	})
}
