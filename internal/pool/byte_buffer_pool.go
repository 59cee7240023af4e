package pool

import (
	"io"
	"sync"
)

const (
	// ScratchDefaultSize is the initial capacity of scratch buffers handed out by the default pool.
	ScratchDefaultSize = 1024 * 64 // 64KiB
	// ScratchMaxThreshold caps the capacity of scratch buffers kept by the default pool.
	ScratchMaxThreshold = 1024 * 1024 * 4 // 4MiB

	smallGrowth = 1024 * 16 // 16KiB
)

// ByteBuffer is an append-only byte buffer used for compressed output.
//
// It implements io.Writer so codec encoders can stream into it directly.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates an empty ByteBuffer with the given capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, capacity)}
}

// Bytes returns the buffered bytes.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer and keeps its capacity.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the number of buffered bytes.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// Extend reslices the buffer n bytes longer if capacity allows it.
// The new bytes are not zeroed.
func (bb *ByteBuffer) Extend(n int) bool {
	curLen := len(bb.B)
	if cap(bb.B)-curLen < n {
		return false
	}
	bb.B = bb.B[:curLen+n]

	return true
}

// ExtendOrGrow extends the buffer by n bytes, reallocating when needed.
func (bb *ByteBuffer) ExtendOrGrow(n int) {
	if bb.Extend(n) {
		return
	}

	start := len(bb.B)
	bb.Grow(n)
	bb.B = bb.B[:start+n]
}

// Grow makes room for at least n more bytes.
//
// Small buffers grow in 16KiB steps; larger ones grow by a quarter of their
// capacity so that an undersized estimate does not turn into many copies.
func (bb *ByteBuffer) Grow(n int) {
	if cap(bb.B)-len(bb.B) >= n {
		return
	}

	growBy := smallGrowth
	if cap(bb.B) > 4*smallGrowth {
		growBy = cap(bb.B) / 4
	}
	if growBy < n {
		growBy = n
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends p to the buffer. It never fails.
func (bb *ByteBuffer) Write(p []byte) (int, error) {
	bb.B = append(bb.B, p...)
	return len(p), nil
}

// WriteTo writes the buffered bytes to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// Detach hands the buffered bytes to the caller and leaves the buffer empty
// with no backing array, so the result is never shared with a later user.
func (bb *ByteBuffer) Detach() []byte {
	b := bb.B
	bb.B = nil

	return b
}

// ByteBufferPool recycles ByteBuffers through a sync.Pool.
//
// Buffers whose capacity exceeds maxThreshold are dropped on Put so that one
// oversized input does not pin memory for the lifetime of the process.
type ByteBufferPool struct {
	pool         sync.Pool
	defaultSize  int
	maxThreshold int
}

// NewByteBufferPool creates a pool handing out buffers of defaultSize capacity.
// A maxThreshold <= 0 keeps buffers of any size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	p := &ByteBufferPool{defaultSize: defaultSize, maxThreshold: maxThreshold}
	p.pool.New = func() any {
		return NewByteBuffer(p.defaultSize)
	}

	return p
}

// Get returns an empty buffer.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	if bb.B == nil {
		bb.B = make([]byte, 0, bbp.defaultSize)
	}

	return bb
}

// Put returns bb to the pool. Nil buffers are ignored.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var scratchPool = NewByteBufferPool(ScratchDefaultSize, ScratchMaxThreshold)

// GetScratch returns a buffer from the default scratch pool.
func GetScratch() *ByteBuffer {
	return scratchPool.Get()
}

// PutScratch returns a buffer to the default scratch pool.
func PutScratch(bb *ByteBuffer) {
	scratchPool.Put(bb)
}
