package qatzstd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/arloliu/qatzstd/compress"
)

// Environment variables read by LoadFromEnv.
const (
	EnvLevel         = "QATZSTD_LEVEL"
	EnvPoolSize      = "QATZSTD_POOL_SIZE"
	EnvAccelEnabled  = "QATZSTD_ACCEL_ENABLED"
	EnvMaxOutputSize = "QATZSTD_MAX_OUTPUT_SIZE"
)

// DefaultPoolSize is the default number of idle accelerator sessions kept for reuse.
const DefaultPoolSize = 256

// ErrInvalidConfig is returned for configuration values out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the compressor settings.
type Config struct {
	// Level is the zstd compression level. Zero selects compress.DefaultLevel.
	Level int
	// PoolSize bounds the number of idle accelerator sessions. Sessions in use
	// are not counted.
	PoolSize int
	// AccelEnabled allows compression to lease accelerator sessions.
	AccelEnabled bool
	// MaxOutputSize rejects frames declaring a larger original length.
	// Zero means no limit beyond the frame format's own.
	MaxOutputSize int
}

// DefaultConfig returns the default configuration. Acceleration is off.
func DefaultConfig() Config {
	return Config{
		Level:    compress.DefaultLevel,
		PoolSize: DefaultPoolSize,
	}
}

// Validate checks that every field is in range.
func (c Config) Validate() error {
	if _, err := compress.NormalizeLevel(c.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("%w: pool size must be >= 0, got %d", ErrInvalidConfig, c.PoolSize)
	}
	if c.MaxOutputSize < 0 {
		return fmt.Errorf("%w: max output size must be >= 0, got %d", ErrInvalidConfig, c.MaxOutputSize)
	}

	return nil
}

// LoadFromEnv overrides fields from the QATZSTD_* environment variables.
// Unset variables leave the field unchanged.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvLevel); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvLevel, err)
		}
		c.Level = i
	}
	if v := os.Getenv(EnvPoolSize); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvPoolSize, err)
		}
		c.PoolSize = i
	}
	if v := os.Getenv(EnvAccelEnabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvAccelEnabled, err)
		}
		c.AccelEnabled = b
	}
	if v := os.Getenv(EnvMaxOutputSize); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvMaxOutputSize, err)
		}
		c.MaxOutputSize = i
	}

	return nil
}

// Settings holds the configuration values that may change while the
// compressor is in use. Every compression reads them afresh.
type Settings struct {
	level         atomic.Int32
	poolSize      atomic.Int64
	accelEnabled  atomic.Bool
	maxOutputSize atomic.Int64
}

func newSettings(cfg Config) *Settings {
	s := &Settings{}
	lvl, _ := compress.NormalizeLevel(cfg.Level)
	s.level.Store(int32(lvl)) //nolint: gosec
	s.poolSize.Store(int64(cfg.PoolSize))
	s.accelEnabled.Store(cfg.AccelEnabled)
	s.maxOutputSize.Store(int64(cfg.MaxOutputSize))

	return s
}

// Level returns the compression level.
func (s *Settings) Level() int {
	return int(s.level.Load())
}

// SetLevel changes the compression level for later calls.
func (s *Settings) SetLevel(level int) error {
	lvl, err := compress.NormalizeLevel(level)
	if err != nil {
		return err
	}
	s.level.Store(int32(lvl)) //nolint: gosec

	return nil
}

// PoolSize returns the idle session bound.
func (s *Settings) PoolSize() int {
	return int(s.poolSize.Load())
}

// SetPoolSize changes the idle session bound.
func (s *Settings) SetPoolSize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: pool size must be >= 0, got %d", ErrInvalidConfig, n)
	}
	s.poolSize.Store(int64(n))

	return nil
}

// AccelEnabled reports whether compression may use the accelerator.
func (s *Settings) AccelEnabled() bool {
	return s.accelEnabled.Load()
}

// SetAccelEnabled turns accelerator use on or off for later calls.
func (s *Settings) SetAccelEnabled(enabled bool) {
	s.accelEnabled.Store(enabled)
}

// MaxOutputSize returns the decompressed size limit, zero for none.
func (s *Settings) MaxOutputSize() int {
	return int(s.maxOutputSize.Load())
}

// Snapshot returns the current values as a Config.
func (s *Settings) Snapshot() Config {
	return Config{
		Level:         s.Level(),
		PoolSize:      s.PoolSize(),
		AccelEnabled:  s.AccelEnabled(),
		MaxOutputSize: s.MaxOutputSize(),
	}
}
