package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/qatzstd/internal/pool"
)

// zstdMagic starts every zstd frame.
const zstdMagic = 0xFD2FB528

var (
	// ErrClosed is returned when a closed context is used.
	ErrClosed = errors.New("compression context closed")
	// ErrStageWrong is returned when parameters change after streaming started,
	// or when a finished stream is fed again without Reset.
	ErrStageWrong = errors.New("operation not allowed at this stage")
	// ErrNoMatchFinder is returned when enabling fallback without a registered match finder.
	ErrNoMatchFinder = errors.New("no match finder registered")
	// ErrMatchFinder wraps a match finder failure that was not absorbed by fallback.
	ErrMatchFinder = errors.New("match finder failed")
	// ErrInvalidFrame is returned when a match finder produces something that is not a zstd frame.
	ErrInvalidFrame = errors.New("match finder produced an invalid frame")
)

// EndDirective tells Compress what to do after consuming a chunk.
type EndDirective uint8

const (
	// EndContinue buffers the chunk; more input follows.
	EndContinue EndDirective = iota
	// EndFlush emits everything buffered so far; more input may follow.
	EndFlush
	// EndEnd finishes the stream after this chunk.
	EndEnd
)

func (d EndDirective) String() string {
	switch d {
	case EndContinue:
		return "continue"
	case EndFlush:
		return "flush"
	case EndEnd:
		return "end"
	default:
		return "unknown"
	}
}

// MatchFinder produces compressed output for a chunk on the codec's behalf.
//
// EncodeFrame appends one complete zstd frame holding src to dst and returns
// the extended slice. Implementations must not retain src or dst.
type MatchFinder interface {
	EncodeFrame(dst, src []byte, level int) ([]byte, error)
}

// Encoder is a zstd compression context.
//
// A context moves through three stages: configuration (after NewEncoder or
// Reset), streaming (after the first Compress) and ended (after EndEnd or a
// failure). Parameters may only change during configuration.
type Encoder interface {
	// Reset starts a new session. The level is kept; the pledged size, the
	// registered match finder and the fallback flag are cleared.
	Reset()
	// SetLevel sets the compression level. Zero selects DefaultLevel.
	SetLevel(level int) error
	// SetPledgedSrcSize declares the total input size. Negative means unknown.
	SetPledgedSrcSize(size int64) error
	// RegisterMatchFinder installs f as the chunk producer. Nil unregisters.
	// The finder is borrowed until Reset or Close.
	RegisterMatchFinder(f MatchFinder) error
	// SetFallback controls whether a failing match finder drops to the
	// software encoder for the affected chunk instead of failing the stream.
	SetFallback(enabled bool) error
	// Compress consumes in and writes produced bytes to out. The same out must
	// be passed for every chunk of a stream.
	Compress(out io.Writer, in []byte, dir EndDirective) error
	// FallbackChunks reports how many chunks of the current stream were
	// encoded in software after the match finder failed.
	FallbackChunks() int
	// Close releases the context. It is safe to call more than once.
	Close() error
}

type encoderStage uint8

const (
	stageConfig encoderStage = iota
	stageStreaming
	stageEnded
)

type zstdEncoder struct {
	level     int
	pledged   int64
	finder    MatchFinder
	fallback  bool
	stage     encoderStage
	stream    streamWriter
	emitted   bool
	fallbacks int
	closed    bool
}

var _ Encoder = (*zstdEncoder)(nil)

// NewEncoder returns a compression context at DefaultLevel.
func NewEncoder() Encoder {
	return &zstdEncoder{level: DefaultLevel, pledged: -1}
}

func (e *zstdEncoder) Reset() {
	e.releaseStream()
	e.pledged = -1
	e.finder = nil
	e.fallback = false
	e.stage = stageConfig
	e.emitted = false
	e.fallbacks = 0
}

func (e *zstdEncoder) SetLevel(level int) error {
	if err := e.configurable(); err != nil {
		return err
	}

	lvl, err := NormalizeLevel(level)
	if err != nil {
		return err
	}
	e.level = lvl

	return nil
}

func (e *zstdEncoder) SetPledgedSrcSize(size int64) error {
	if err := e.configurable(); err != nil {
		return err
	}
	if size < 0 {
		size = -1
	}
	e.pledged = size

	return nil
}

func (e *zstdEncoder) RegisterMatchFinder(f MatchFinder) error {
	if err := e.configurable(); err != nil {
		return err
	}
	e.finder = f
	if f == nil {
		e.fallback = false
	}

	return nil
}

func (e *zstdEncoder) SetFallback(enabled bool) error {
	if err := e.configurable(); err != nil {
		return err
	}
	if enabled && e.finder == nil {
		return ErrNoMatchFinder
	}
	e.fallback = enabled

	return nil
}

func (e *zstdEncoder) FallbackChunks() int {
	return e.fallbacks
}

func (e *zstdEncoder) Compress(out io.Writer, in []byte, dir EndDirective) error {
	if e.closed {
		return ErrClosed
	}

	switch e.stage {
	case stageEnded:
		return fmt.Errorf("%w: stream already ended", ErrStageWrong)
	case stageConfig:
		e.stage = stageStreaming
		if e.finder == nil {
			e.stream = acquireStream(e.level)
			e.stream.reset(out, e.level, e.pledged)
		}
	case stageStreaming:
	}

	var err error
	if e.finder != nil {
		err = e.compressWithFinder(out, in, dir)
	} else {
		err = e.compressSoftware(in, dir)
	}

	if err != nil || dir == EndEnd {
		e.stage = stageEnded
		e.releaseStream()
	}

	return err
}

func (e *zstdEncoder) compressSoftware(in []byte, dir EndDirective) error {
	if len(in) > 0 {
		if err := e.stream.write(in); err != nil {
			return fmt.Errorf("zstd stream write: %w", err)
		}
	}

	switch dir {
	case EndFlush:
		if err := e.stream.flush(); err != nil {
			return fmt.Errorf("zstd stream flush: %w", err)
		}
	case EndEnd:
		if err := e.stream.finish(); err != nil {
			return fmt.Errorf("zstd stream end: %w", err)
		}
	case EndContinue:
	}

	return nil
}

// compressWithFinder encodes in as one frame. An empty chunk only produces a
// frame when the stream would otherwise end with no output at all.
func (e *zstdEncoder) compressWithFinder(out io.Writer, in []byte, dir EndDirective) error {
	if len(in) == 0 && (dir != EndEnd || e.emitted) {
		return nil
	}

	scratch := pool.GetScratch()
	defer pool.PutScratch(scratch)

	frame, err := e.finder.EncodeFrame(scratch.B[:0], in, e.level)
	if err == nil && !isZstdFrame(frame) {
		err = ErrInvalidFrame
	}
	if err != nil {
		if !e.fallback {
			return fmt.Errorf("%w: %w", ErrMatchFinder, err)
		}
		e.fallbacks++
		frame = encodeFrame(scratch.B[:0], in, e.level)
	}

	if _, err := out.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	e.emitted = true
	if cap(frame) > cap(scratch.B) {
		scratch.B = frame[:0]
	}

	return nil
}

func (e *zstdEncoder) Close() error {
	e.releaseStream()
	e.finder = nil
	e.fallback = false
	e.closed = true

	return nil
}

func (e *zstdEncoder) configurable() error {
	if e.closed {
		return ErrClosed
	}
	if e.stage != stageConfig {
		return ErrStageWrong
	}

	return nil
}

func (e *zstdEncoder) releaseStream() {
	if e.stream != nil {
		e.stream.release()
		e.stream = nil
	}
}

func isZstdFrame(b []byte) bool {
	return len(b) >= 4 && binary.LittleEndian.Uint32(b) == zstdMagic
}

// streamWriter is the software zstd stream of a backend.
type streamWriter interface {
	reset(w io.Writer, level int, pledged int64)
	write(p []byte) error
	flush() error
	finish() error
	release()
}
