package compress

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// generateBenchmarkData creates test data for benchmarks
func generateBenchmarkData(size int, compressibility string) []byte {
	data := make([]byte, size)

	switch compressibility {
	case "compressible":
		pattern := []byte("object write path payload with offset 1234567890 and length 4096")
		for i := range data {
			data[i] = pattern[i%len(pattern)]
		}
	case "semi_compressible":
		for i := range data {
			if i%100 < 50 {
				data[i] = byte(i % 256)
			} else {
				data[i] = byte((i*7 + i*i) % 256)
			}
		}
	default:
		for i := range data {
			data[i] = byte((i*31 + i*i*7 + i*i*i*3) % 256)
		}
	}

	return data
}

var benchSizes = []int{16 << 10, 128 << 10, 1 << 20}

func BenchmarkEncoder_Software(b *testing.B) {
	for _, kind := range []string{"compressible", "semi_compressible"} {
		for _, size := range benchSizes {
			data := generateBenchmarkData(size, kind)

			b.Run(fmt.Sprintf("%s/%dKB", kind, size/1024), func(b *testing.B) {
				enc := NewEncoder()
				defer enc.Close()

				var out bytes.Buffer
				b.SetBytes(int64(size))
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					out.Reset()
					enc.Reset()
					_ = enc.SetPledgedSrcSize(int64(size))
					if err := enc.Compress(&out, data, EndEnd); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkEncoder_MatchFinder(b *testing.B) {
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithZeroFrames(true))
	if err != nil {
		b.Fatal(err)
	}
	defer zenc.Close()
	finder := &mockFinder{enc: zenc}

	const chunkSize = 64 << 10
	for _, size := range benchSizes {
		data := generateBenchmarkData(size, "compressible")

		b.Run(fmt.Sprintf("%dKB", size/1024), func(b *testing.B) {
			enc := NewEncoder()
			defer enc.Close()

			var out bytes.Buffer
			b.SetBytes(int64(size))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				out.Reset()
				enc.Reset()
				_ = enc.RegisterMatchFinder(finder)
				_ = enc.SetFallback(true)
				for off := 0; off < size; off += chunkSize {
					end := min(off+chunkSize, size)
					dir := EndContinue
					if end == size {
						dir = EndEnd
					}
					if err := enc.Compress(&out, data[off:end], dir); err != nil {
						b.Fatal(err)
					}
				}
			}
		})
	}
}

func BenchmarkDecoder(b *testing.B) {
	for _, size := range benchSizes {
		data := generateBenchmarkData(size, "compressible")
		payload := encodeFrame(nil, data, DefaultLevel)

		b.Run(fmt.Sprintf("%dKB", size/1024), func(b *testing.B) {
			dec := NewDecoder()
			defer dec.Close()

			dst := make([]byte, size)
			b.SetBytes(int64(size))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := dec.Decompress(dst, bytes.NewReader(payload)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBaselines_Compress(b *testing.B) {
	for _, codec := range Baselines() {
		for _, size := range benchSizes {
			data := generateBenchmarkData(size, "compressible")

			b.Run(fmt.Sprintf("%s/%dKB", codec.Name(), size/1024), func(b *testing.B) {
				b.SetBytes(int64(size))
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := codec.Compress(data); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
