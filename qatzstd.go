// Package qatzstd compresses byte streams with zstd, offloading match finding
// to a hardware accelerator when one is available.
//
// Every compressed payload is a frame: a 4-byte little-endian original length
// followed by a standard zstd stream. The accelerator only changes how the
// zstd stream is produced, never its format, so any frame decompresses the
// same way whether or not an accelerator was used, or is even present.
//
// # Core Features
//
//   - Pooled accelerator sessions, reused most-recently-released first
//   - Transparent software fallback when the device is absent, busy or failing
//   - Per-chunk fallback inside a stream when the accelerator fails mid-way
//   - Live reconfiguration of level, pool size and accelerator use
//   - Pure Go zstd by default, cgo zstd with the gozstd build tag
//
// # Basic Usage
//
//	c, err := qatzstd.New(
//	    qatzstd.WithDriver(accel.NewEmulatedDriver()),
//	    qatzstd.WithAcceleration(true),
//	)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	frame, _ := c.CompressBytes(payload)
//	original, _ := c.DecompressBytes(frame)
//
// # Package Structure
//
// This package owns the device, the session pool and the live settings and
// wires them into the stream package. The accel, compress, chunk and format
// packages can be used directly for finer control.
package qatzstd

import (
	"errors"
	"sync/atomic"

	"github.com/arloliu/qatzstd/accel"
	"github.com/arloliu/qatzstd/chunk"
	"github.com/arloliu/qatzstd/format"
	"github.com/arloliu/qatzstd/internal/options"
	"github.com/arloliu/qatzstd/stream"
	"go.uber.org/zap"
)

// ErrClosed is returned by calls on a closed Compressor.
var ErrClosed = errors.New("compressor closed")

// Compressor compresses and decompresses frames. It is safe for concurrent use.
//
// The accelerator device is started on the first accelerated call and
// stopped by Close, once every in-flight call has returned its session.
type Compressor struct {
	cfg      Config
	driver   accel.Driver
	logger   *zap.Logger
	settings *Settings
	device   *accel.Device
	pool     *accel.SessionPool
	closed   atomic.Bool

	compressCalls    atomic.Uint64
	acceleratedCalls atomic.Uint64
	softwareCalls    atomic.Uint64
	fallbackChunks   atomic.Uint64
	decompressCalls  atomic.Uint64
	failedCalls      atomic.Uint64
	bytesIn          atomic.Uint64
	bytesOut         atomic.Uint64
}

// New creates a Compressor. The configuration starts from DefaultConfig.
func New(opts ...Option) (*Compressor, error) {
	c := &Compressor{
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if c.driver == nil {
		c.driver = accel.UnavailableDriver{}
	}

	c.settings = newSettings(c.cfg)
	c.device = accel.NewDevice(c.driver, accel.WithDeviceLogger(c.logger))
	c.pool = accel.NewSessionPool(c.device, c.settings.PoolSize, accel.WithLogger(c.logger))

	return c, nil
}

// Settings returns the live settings.
func (c *Compressor) Settings() *Settings {
	return c.settings
}

// Compress reads all of src and returns the frame.
func (c *Compressor) Compress(src chunk.Reader) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.compressCalls.Add(1)

	var sessions stream.SessionSource
	if c.settings.AccelEnabled() {
		sessions = c.pool
	}

	size := src.Len()
	sc, err := stream.NewCompressor(sessions,
		stream.WithLevel(c.settings.Level()),
		stream.WithLogger(c.logger),
	)
	if err != nil {
		c.failedCalls.Add(1)
		return nil, err
	}

	frame, err := sc.Compress(src)
	if err != nil {
		c.failedCalls.Add(1)
		return nil, err
	}

	if sc.Path() == format.PathAccelerated {
		c.acceleratedCalls.Add(1)
	} else {
		c.softwareCalls.Add(1)
	}
	if n := sc.FallbackChunks(); n > 0 {
		c.fallbackChunks.Add(uint64(n))
		c.logger.Debug("accelerator chunks compressed in software", zap.Int("chunks", n))
	}
	c.bytesIn.Add(uint64(size))
	c.bytesOut.Add(uint64(len(frame)))

	return frame, nil
}

// CompressBytes compresses data held in one slice.
func (c *Compressor) CompressBytes(data []byte) ([]byte, error) {
	return c.Compress(chunk.FromBytes(data, 0).Iterator())
}

// Decompress reads a frame of compressedLen bytes from src.
func (c *Compressor) Decompress(src chunk.Reader, compressedLen int) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.decompressCalls.Add(1)

	var opts []stream.DecompressOption
	if limit := c.settings.MaxOutputSize(); limit > 0 {
		opts = append(opts, stream.WithMaxOutputSize(limit))
	}

	out, err := stream.Decompress(src, compressedLen, opts...)
	if err != nil {
		c.failedCalls.Add(1)
		return nil, err
	}

	return out, nil
}

// DecompressBytes decompresses a frame held in one slice.
func (c *Compressor) DecompressBytes(frame []byte) ([]byte, error) {
	return c.Decompress(chunk.FromBytes(frame, 0).Iterator(), len(frame))
}

// SetLevel changes the compression level for later calls.
func (c *Compressor) SetLevel(level int) error {
	return c.settings.SetLevel(level)
}

// SetPoolSize changes the idle session bound. Idle sessions above the new
// bound are destroyed right away.
func (c *Compressor) SetPoolSize(n int) error {
	if err := c.settings.SetPoolSize(n); err != nil {
		return err
	}
	if trimmed := c.pool.Trim(); trimmed > 0 {
		c.logger.Debug("trimmed idle accelerator sessions", zap.Int("sessions", trimmed))
	}

	return nil
}

// SetAcceleration turns accelerator use on or off for later calls.
// Sessions already leased finish their calls.
func (c *Compressor) SetAcceleration(enabled bool) {
	c.settings.SetAccelEnabled(enabled)
}

// Stats is a snapshot of compressor activity.
type Stats struct {
	CompressCalls    uint64
	AcceleratedCalls uint64
	SoftwareCalls    uint64
	FallbackChunks   uint64
	DecompressCalls  uint64
	FailedCalls      uint64
	BytesIn          uint64
	BytesOut         uint64
	Pool             accel.PoolStats
}

// Stats returns a snapshot of the counters.
func (c *Compressor) Stats() Stats {
	return Stats{
		CompressCalls:    c.compressCalls.Load(),
		AcceleratedCalls: c.acceleratedCalls.Load(),
		SoftwareCalls:    c.softwareCalls.Load(),
		FallbackChunks:   c.fallbackChunks.Load(),
		DecompressCalls:  c.decompressCalls.Load(),
		FailedCalls:      c.failedCalls.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		Pool:             c.pool.Stats(),
	}
}

// Close releases idle sessions and stops the device. Calls still running
// complete normally; the device stops when the last of them finishes.
func (c *Compressor) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	return c.pool.Close()
}
