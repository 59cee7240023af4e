// Package chunk provides the segmented byte-stream abstraction the compressor
// walks its input with.
//
// A List holds data as an ordered set of contiguous segments, the way network
// and storage layers typically hand it over. Readers expose those segments one
// at a time without copying them into a single buffer.
package chunk

import (
	"errors"
	"io"
)

// DefaultSegmentSize is the segment size used by ReadFrom when none is given.
const DefaultSegmentSize = 64 * 1024

// Reader yields contiguous byte ranges of a larger payload.
type Reader interface {
	// Len returns the number of bytes not yet returned by Next.
	Len() int
	// Next returns the next contiguous range of at most limit bytes.
	// The returned slice aliases the underlying storage and must not be modified.
	// It returns io.EOF when no bytes remain.
	Next(limit int) ([]byte, error)
}

// ErrInvalidLimit is returned by Next for a non-positive limit.
var ErrInvalidLimit = errors.New("chunk: limit must be positive")

// List is an ordered collection of byte segments.
// A List is not safe for concurrent mutation; concurrent Iterators are fine.
type List struct {
	segs [][]byte
	size int
}

// FromBytes returns a List viewing data in segments of segSize bytes.
// A segSize <= 0 keeps data as a single segment. The data is not copied.
func FromBytes(data []byte, segSize int) *List {
	l := &List{}
	if segSize <= 0 {
		l.Append(data)
		return l
	}
	for len(data) > segSize {
		l.Append(data[:segSize:segSize])
		data = data[segSize:]
	}
	l.Append(data)

	return l
}

// ReadFrom drains r into a new List made of segments of up to segSize bytes.
func ReadFrom(r io.Reader, segSize int) (*List, error) {
	if segSize <= 0 {
		segSize = DefaultSegmentSize
	}

	l := &List{}
	for {
		seg := make([]byte, segSize)
		n, err := io.ReadFull(r, seg)
		l.Append(seg[:n])
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return l, nil
		}

		return nil, err
	}
}

// Append adds seg to the end of the list. Empty segments are ignored.
func (l *List) Append(seg []byte) {
	if len(seg) == 0 {
		return
	}
	l.segs = append(l.segs, seg)
	l.size += len(seg)
}

// Len returns the total number of bytes in the list.
func (l *List) Len() int {
	return l.size
}

// Segments returns the underlying segments.
func (l *List) Segments() [][]byte {
	return l.segs
}

// Bytes returns the list contents as one slice. A single-segment list is
// returned without copying.
func (l *List) Bytes() []byte {
	switch len(l.segs) {
	case 0:
		return []byte{}
	case 1:
		return l.segs[0]
	}

	out := make([]byte, 0, l.size)
	for _, seg := range l.segs {
		out = append(out, seg...)
	}

	return out
}

// Iterator returns a Reader positioned at the start of the list.
func (l *List) Iterator() *Iterator {
	return &Iterator{segs: l.segs, remaining: l.size}
}

// Iterator walks a List segment by segment.
type Iterator struct {
	segs      [][]byte
	idx       int
	off       int
	remaining int
}

var _ Reader = (*Iterator)(nil)

// Len implements Reader.
func (it *Iterator) Len() int {
	return it.remaining
}

// Next implements Reader. A segment larger than limit is returned in pieces.
func (it *Iterator) Next(limit int) ([]byte, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if it.remaining == 0 {
		return nil, io.EOF
	}

	seg := it.segs[it.idx][it.off:]
	if len(seg) > limit {
		seg = seg[:limit]
		it.off += limit
	} else {
		it.idx++
		it.off = 0
	}
	it.remaining -= len(seg)

	return seg, nil
}

// Done reports whether every byte has been returned.
func (it *Iterator) Done() bool {
	return it.remaining == 0
}

// Limit returns a Reader over the next n bytes of r. Reads past n report
// io.EOF even when r has more data.
func Limit(r Reader, n int) Reader {
	return &limited{r: r, n: n}
}

type limited struct {
	r Reader
	n int
}

func (l *limited) Len() int {
	return min(l.n, l.r.Len())
}

func (l *limited) Next(limit int) ([]byte, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if l.n <= 0 {
		return nil, io.EOF
	}

	b, err := l.r.Next(min(limit, l.n))
	l.n -= len(b)

	return b, err
}

// NewIOReader adapts r to io.Reader so streaming decoders can pull from it.
// It reports io.EOF once r is exhausted.
func NewIOReader(r Reader) io.Reader {
	return &ioReader{r: r}
}

type ioReader struct {
	r   Reader
	cur []byte
}

func (ir *ioReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(p) {
		if len(ir.cur) == 0 {
			seg, err := ir.r.Next(len(p) - n)
			if err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}

				return n, err
			}
			ir.cur = seg
		}
		c := copy(p[n:], ir.cur)
		ir.cur = ir.cur[c:]
		n += c
	}

	return n, nil
}

// ReadFull copies exactly len(dst) bytes from r into dst, crossing segment
// boundaries as needed. It returns io.ErrUnexpectedEOF if r ends early.
func ReadFull(r Reader, dst []byte) (int, error) {
	n := 0
	for n < len(dst) {
		seg, err := r.Next(len(dst) - n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, io.ErrUnexpectedEOF
			}

			return n, err
		}
		n += copy(dst[n:], seg)
	}

	return n, nil
}
