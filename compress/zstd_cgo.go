//go:build gozstd && cgo

package compress

import (
	"io"
	"runtime"
	"sync"

	"github.com/valyala/gozstd"
)

// gozstd objects own C memory; the finalizers release it when a pooled
// object is dropped by the garbage collector.
var writerPool = sync.Pool{
	New: func() any {
		w := &gozstdStream{w: gozstd.NewWriterLevel(nil, DefaultLevel)}
		runtime.SetFinalizer(w, func(s *gozstdStream) { s.w.Release() })

		return w
	},
}

var readerPool = sync.Pool{
	New: func() any {
		r := &gozstdReader{r: gozstd.NewReader(nil)}
		runtime.SetFinalizer(r, func(gr *gozstdReader) { gr.r.Release() })

		return r
	},
}

// gozstdStream does not support pledged sizes; the frame is written without
// a content size.
type gozstdStream struct {
	w *gozstd.Writer
}

func acquireStream(int) streamWriter {
	s, _ := writerPool.Get().(*gozstdStream)
	return s
}

func (s *gozstdStream) reset(w io.Writer, level int, _ int64) {
	s.w.Reset(w, nil, level)
}

func (s *gozstdStream) write(p []byte) error {
	_, err := s.w.Write(p)
	return err
}

func (s *gozstdStream) flush() error {
	return s.w.Flush()
}

func (s *gozstdStream) finish() error {
	return s.w.Close()
}

func (s *gozstdStream) release() {
	s.w.Reset(nil, nil, DefaultLevel)
	writerPool.Put(s)
}

func encodeFrame(dst, src []byte, level int) []byte {
	return gozstd.CompressLevel(dst, src, level)
}

type gozstdReader struct {
	r *gozstd.Reader
}

func acquireStreamReader() streamReader {
	r, _ := readerPool.Get().(*gozstdReader)
	return r
}

func (r *gozstdReader) reset(src io.Reader) error {
	r.r.Reset(src, nil)
	return nil
}

func (r *gozstdReader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *gozstdReader) release() {
	r.r.Reset(nil, nil)
	readerPool.Put(r)
}
