// Package stream drives one compression or decompression of a framed payload.
//
// Compression leases an accelerator session when one is available and
// registers it with the codec as the match finder, with software fallback
// enabled for chunks the accelerator fails. Without a session the codec
// compresses in software. Both paths produce the same frame layout, so
// decompression never needs to know which one ran.
package stream

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/arloliu/qatzstd/accel"
	"github.com/arloliu/qatzstd/chunk"
	"github.com/arloliu/qatzstd/compress"
	"github.com/arloliu/qatzstd/format"
	"github.com/arloliu/qatzstd/internal/options"
	"github.com/arloliu/qatzstd/internal/pool"
	"go.uber.org/zap"
)

// SessionSource hands out accelerator sessions. *accel.SessionPool implements it.
type SessionSource interface {
	Acquire() (*accel.Lease, error)
}

var _ SessionSource = (*accel.SessionPool)(nil)

// Compressor performs a single compression. Create one per call.
type Compressor struct {
	sessions   SessionSource
	level      int
	logger     *zap.Logger
	newEncoder func() compress.Encoder

	used      atomic.Bool
	path      format.Path
	fallbacks int
}

// NewCompressor creates a Compressor that leases sessions from sessions.
// A nil sessions compresses in software only.
func NewCompressor(sessions SessionSource, opts ...Option) (*Compressor, error) {
	c := &Compressor{
		sessions:   sessions,
		level:      compress.DefaultLevel,
		logger:     zap.NewNop(),
		newEncoder: compress.NewEncoder,
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// Path reports which producer compressed the payload. It is PathUnknown
// until Compress has selected one.
func (c *Compressor) Path() format.Path {
	return c.path
}

// FallbackChunks reports how many chunks the codec compressed in software
// after the accelerator failed on them.
func (c *Compressor) FallbackChunks() int {
	return c.fallbacks
}

// Compress reads all of src and returns the framed compressed payload.
//
// Accelerator unavailability is not an error; the payload is then produced
// in software. Codec failures abort the call.
func (c *Compressor) Compress(src chunk.Reader) ([]byte, error) {
	if !c.used.CompareAndSwap(false, true) {
		return nil, ErrReused
	}

	size := src.Len()
	if _, err := format.AppendHeader(nil, size); err != nil {
		return nil, err
	}

	lease := c.acquire()
	defer lease.Release()

	enc := c.newEncoder()
	defer enc.Close()

	if err := c.configure(enc, size); err != nil {
		return nil, err
	}
	if err := c.register(enc, lease); err != nil {
		return nil, err
	}

	out := pool.NewByteBuffer(format.HeaderSize + compress.CompressBound(size))
	out.ExtendOrGrow(format.HeaderSize)

	if err := c.stream(enc, src, size, out); err != nil {
		return nil, err
	}

	c.fallbacks = enc.FallbackChunks()
	if err := format.PutHeader(out.B, size); err != nil {
		return nil, err
	}

	if ce := c.logger.Check(zap.DebugLevel, "compressed payload"); ce != nil {
		ce.Write(
			zap.Stringer("path", c.path),
			zap.Int("original_bytes", size),
			zap.Int("frame_bytes", out.Len()),
			zap.Int("fallback_chunks", c.fallbacks),
		)
	}

	return out.Detach(), nil
}

// acquire returns nil when no session is available.
func (c *Compressor) acquire() *accel.Lease {
	c.path = format.PathSoftware
	if c.sessions == nil {
		return nil
	}

	lease, err := c.sessions.Acquire()
	if err != nil {
		c.logger.Debug("accelerator session unavailable, compressing in software", zap.Error(err))
		return nil
	}
	if lease.Session() == nil {
		lease.Release()
		return nil
	}
	c.path = format.PathAccelerated

	return lease
}

func (c *Compressor) configure(enc compress.Encoder, size int) error {
	enc.Reset()
	if err := enc.SetLevel(c.level); err != nil {
		return fmt.Errorf("set compression level: %w", err)
	}
	if err := enc.SetPledgedSrcSize(int64(size)); err != nil {
		return fmt.Errorf("set pledged source size: %w", err)
	}

	return nil
}

func (c *Compressor) register(enc compress.Encoder, lease *accel.Lease) error {
	if lease == nil {
		return nil
	}

	if err := enc.RegisterMatchFinder(lease.Session()); err != nil {
		return fmt.Errorf("register accelerator session: %w", err)
	}
	if err := enc.SetFallback(true); err != nil {
		return fmt.Errorf("%w: %w", ErrFallbackRejected, err)
	}

	return nil
}

// stream feeds src to enc one segment at a time. It runs at least once so
// that an empty input still ends the codec stream.
func (c *Compressor) stream(enc compress.Encoder, src chunk.Reader, size int, out *pool.ByteBuffer) error {
	consumed := 0
	for {
		var in []byte
		if remaining := size - consumed; remaining > 0 {
			seg, err := src.Next(remaining)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return fmt.Errorf("%w: read %d of %d bytes", ErrSourceEnded, consumed, size)
				}

				return fmt.Errorf("read input: %w", err)
			}
			if len(seg) == 0 {
				return fmt.Errorf("%w: empty segment at %d of %d bytes", ErrSourceEnded, consumed, size)
			}
			in = seg
		}
		consumed += len(in)

		dir := compress.EndContinue
		if consumed >= size {
			dir = compress.EndEnd
		}
		if err := enc.Compress(out, in, dir); err != nil {
			return fmt.Errorf("%w: %w", ErrChunk, err)
		}
		if dir == compress.EndEnd {
			return nil
		}
	}
}
