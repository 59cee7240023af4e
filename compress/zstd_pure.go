//go:build !(gozstd && cgo)

package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// encoderPools holds one pool per klauspost speed setting. Zstd levels are
// mapped onto the four speeds by zstd.EncoderLevelFromZstd.
var encoderPools sync.Map // map[zstd.EncoderLevel]*sync.Pool

func encoderPool(level int) *sync.Pool {
	speed := zstd.EncoderLevelFromZstd(level)
	if p, ok := encoderPools.Load(speed); ok {
		return p.(*sync.Pool) //nolint: forcetypeassert
	}

	p := &sync.Pool{New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(speed),
			zstd.WithEncoderConcurrency(1), // stream in the calling goroutine
			zstd.WithZeroFrames(true),      // empty input still yields a frame
		)
		if err != nil {
			// Only reachable with invalid static options.
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return enc
	}}
	actual, _ := encoderPools.LoadOrStore(speed, p)

	return actual.(*sync.Pool) //nolint: forcetypeassert
}

// decoderPool pools zstd decoders. klauspost decoders are designed to run
// without allocations once warmed up, so they are kept for reuse.
var decoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return dec
	},
}

type klauspostStream struct {
	enc  *zstd.Encoder
	pool *sync.Pool
}

func acquireStream(level int) streamWriter {
	p := encoderPool(level)
	enc, _ := p.Get().(*zstd.Encoder)

	return &klauspostStream{enc: enc, pool: p}
}

func (s *klauspostStream) reset(w io.Writer, _ int, pledged int64) {
	if pledged > 0 {
		s.enc.ResetContentSize(w, pledged)
		return
	}
	s.enc.Reset(w)
}

func (s *klauspostStream) write(p []byte) error {
	_, err := s.enc.Write(p)
	return err
}

func (s *klauspostStream) flush() error {
	return s.enc.Flush()
}

func (s *klauspostStream) finish() error {
	return s.enc.Close()
}

func (s *klauspostStream) release() {
	if s.enc == nil {
		return
	}
	// Drop the reference to the caller's writer before pooling.
	s.enc.Reset(nil)
	s.pool.Put(s.enc)
	s.enc = nil
}

// encodeFrame appends a standalone zstd frame for src to dst.
func encodeFrame(dst, src []byte, level int) []byte {
	p := encoderPool(level)
	enc, _ := p.Get().(*zstd.Encoder)
	defer p.Put(enc)

	return enc.EncodeAll(src, dst)
}

type klauspostReader struct {
	dec *zstd.Decoder
}

func acquireStreamReader() streamReader {
	dec, _ := decoderPool.Get().(*zstd.Decoder)
	return &klauspostReader{dec: dec}
}

func (r *klauspostReader) reset(src io.Reader) error {
	return r.dec.Reset(src)
}

func (r *klauspostReader) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}

func (r *klauspostReader) release() {
	if r.dec == nil {
		return
	}
	decoderPool.Put(r.dec)
	r.dec = nil
}
