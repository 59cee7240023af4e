// Package hash computes payload digests used to check round trips.
package hash

import "github.com/cespare/xxhash/v2"

// Digest returns the xxHash64 of data.
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// DigestSegments returns the xxHash64 of the concatenation of segs without
// joining them first.
func DigestSegments(segs [][]byte) uint64 {
	d := xxhash.New()
	for _, seg := range segs {
		_, _ = d.Write(seg)
	}

	return d.Sum64()
}
