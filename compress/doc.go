// Package compress is the zstd codec layer used by the streaming compressor.
//
// It exposes compression and decompression contexts shaped like the zstd
// streaming API: a context is reset and configured (level, pledged source
// size), optionally given an external match finder, and then fed input chunk
// by chunk with an end directive.
//
// # Encoder
//
//	enc := compress.NewEncoder()
//	defer enc.Close()
//
//	enc.Reset()
//	_ = enc.SetLevel(compress.DefaultLevel)
//	_ = enc.SetPledgedSrcSize(int64(len(data)))
//	err := enc.Compress(out, data, compress.EndEnd)
//
// Without a match finder the encoder produces a single zstd frame covering
// every chunk, with the pledged size recorded as the frame content size.
//
// # External match finders
//
// A MatchFinder is typically an accelerator session. When one is registered
// every chunk is handed to it and the finder returns a complete zstd frame for
// that chunk. If the finder fails and fallback is enabled with SetFallback,
// the encoder compresses that chunk with its own software encoder instead and
// the stream continues:
//
//	_ = enc.RegisterMatchFinder(session)
//	if err := enc.SetFallback(true); err != nil {
//	    return err // never stream through a finder without the safety net
//	}
//
// Chunks encoded by either producer are standard zstd frames, so the
// concatenated output decodes with any zstd decoder.
//
// # Decoder
//
//	dec := compress.NewDecoder()
//	defer dec.Close()
//
//	dst := make([]byte, originalLen)
//	err := dec.Decompress(dst, payload)
//
// Decompress fills dst exactly and reports ErrTruncated when the payload ends
// early, ErrSizeMismatch when it holds more data than dst, and ErrCorrupt for
// any other codec failure.
//
// # Backends
//
// The default backend is github.com/klauspost/compress/zstd. Building with the
// gozstd tag and cgo enabled switches to github.com/valyala/gozstd. Encoder and
// decoder state is pooled per compression level, so contexts are cheap to
// create and the expensive zstd state is reused across calls.
//
// # Baselines
//
// LZ4Codec and S2Codec are one-shot block codecs kept for size and speed
// comparisons in benchmarks and the demo. They are not part of the framed
// wire format.
//
// # Thread Safety
//
// Encoder and Decoder values are not safe for concurrent use; create one per
// goroutine. The baseline codecs are stateless and safe to share.
package compress
