package pool

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorWriter struct {
	err error
}

func (w *errorWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(1024)

	require.NotNil(t, bb.B)
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 1024, bb.Cap())
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(4)

	n, err := bb.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = bb.Write([]byte(" world"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Equal(t, []byte("hello world"), bb.Bytes())
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(64)
	_, _ = bb.Write([]byte("some data"))
	capBefore := bb.Cap()

	bb.Reset()

	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, capBefore, bb.Cap(), "Reset should keep capacity")
}

func TestByteBuffer_Extend(t *testing.T) {
	bb := NewByteBuffer(8)

	require.True(t, bb.Extend(4))
	assert.Equal(t, 4, bb.Len())

	require.True(t, bb.Extend(4))
	assert.Equal(t, 8, bb.Len())

	require.False(t, bb.Extend(1), "Extend must not reallocate")
	assert.Equal(t, 8, bb.Len())
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(2)
	_, _ = bb.Write([]byte("ab"))

	bb.ExtendOrGrow(10)

	assert.Equal(t, 12, bb.Len())
	assert.Equal(t, []byte("ab"), bb.B[:2], "existing bytes must survive growth")
}

func TestByteBuffer_Grow(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		fill    int
		request int
	}{
		{name: "sufficient capacity", initial: 1024, fill: 0, request: 100},
		{name: "small buffer", initial: smallGrowth, fill: smallGrowth, request: 1024},
		{name: "large buffer", initial: 8 * smallGrowth, fill: 8 * smallGrowth, request: 2048},
		{name: "huge request", initial: smallGrowth, fill: smallGrowth, request: 10 * smallGrowth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bb := NewByteBuffer(tt.initial)
			bb.B = append(bb.B, bytes.Repeat([]byte{0x5a}, tt.fill)...)

			bb.Grow(tt.request)

			assert.GreaterOrEqual(t, bb.Cap()-bb.Len(), tt.request)
			assert.Equal(t, tt.fill, bb.Len(), "Grow must not change length")
			if tt.fill > 0 {
				assert.Equal(t, byte(0x5a), bb.B[tt.fill-1])
			}
		})
	}
}

func TestByteBuffer_Grow_NoReallocWhenRoom(t *testing.T) {
	bb := NewByteBuffer(1024)
	_, _ = bb.Write([]byte("x"))
	before := &bb.B[:1][0]

	bb.Grow(512)

	assert.Same(t, before, &bb.B[:1][0])
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(16)
	_, _ = bb.Write([]byte("test data"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)

	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "test data", out.String())
}

func TestByteBuffer_WriteTo_Error(t *testing.T) {
	bb := NewByteBuffer(16)
	_, _ = bb.Write([]byte("test"))

	n, err := bb.WriteTo(&errorWriter{err: io.ErrShortWrite})

	require.True(t, errors.Is(err, io.ErrShortWrite))
	assert.Equal(t, int64(0), n)
}

func TestByteBuffer_Detach(t *testing.T) {
	bb := NewByteBuffer(16)
	_, _ = bb.Write([]byte("frame"))

	out := bb.Detach()

	assert.Equal(t, []byte("frame"), out)
	assert.Nil(t, bb.B)
	assert.Equal(t, 0, bb.Len())
}

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(128, 1024)

	bb := p.Get()
	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.GreaterOrEqual(t, bb.Cap(), 128)

	_, _ = bb.Write([]byte("dirty"))
	p.Put(bb)

	again := p.Get()
	assert.Equal(t, 0, again.Len(), "pooled buffers must come back empty")
}

func TestByteBufferPool_DropsOversized(t *testing.T) {
	p := NewByteBufferPool(16, 64)

	bb := p.Get()
	bb.Grow(1024)
	p.Put(bb) // dropped, not reset

	assert.Equal(t, 0, bb.Len())
	assert.Greater(t, bb.Cap(), 64)
}

func TestByteBufferPool_DetachedBufferIsRefilled(t *testing.T) {
	p := NewByteBufferPool(32, 0)

	bb := p.Get()
	_ = bb.Detach()
	p.Put(bb)

	got := p.Get()
	require.NotNil(t, got.B)
}

func TestByteBufferPool_PutNil(t *testing.T) {
	p := NewByteBufferPool(16, 0)
	require.NotPanics(t, func() { p.Put(nil) })
}

func TestScratchPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				bb := GetScratch()
				_, _ = bb.Write([]byte{byte(id)})
				if bb.Len() != 1 || bb.B[0] != byte(id) {
					t.Errorf("scratch buffer shared between goroutines")
				}
				PutScratch(bb)
			}
		}(i)
	}
	wg.Wait()
}
