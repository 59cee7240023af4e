package compress

// FrameOverhead is the largest zstd frame header plus checksum. Each chunk
// handed to a match finder becomes its own frame and pays this at most once.
const FrameOverhead = 18

// CompressBound returns the worst-case compressed size of n input bytes in a
// single zstd frame, matching ZSTD_COMPRESSBOUND.
func CompressBound(n int) int {
	if n < 0 {
		return 0
	}

	bound := n + n>>8
	if n < 128<<10 {
		bound += ((128 << 10) - n) >> 11
	}

	return bound
}
