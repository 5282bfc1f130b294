package hash

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// Code returns the non-negative 31-bit hash code of a key's raw bytes.
//
// The result is stable across processes and platforms of the same byte order,
// so hash codes written into a persisted blob stay valid when it is reloaded.
// The top bit is always clear, which leaves math.MinInt32 free as an
// "empty slot" sentinel.
func Code(key []byte) int32 {
	h := xxhash.Sum64(key)
	return int32((h ^ (h >> 32)) & math.MaxInt32) //nolint:gosec // masked to 31 bits
}

// Bucket maps a hash code onto [0, buckets).
func Bucket(code int32, buckets int32) int32 {
	b := code % buckets
	if b < 0 {
		b += buckets
	}
	return b
}
