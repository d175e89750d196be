package util

import "runtime"

// ReasonableBucketCount picks a practical default bucket count based on CPU
// parallelism. Heuristic: nextPow2(2*GOMAXPROCS), clamped to [1..256].
// More buckets reduce lock contention; past a few hundred the extra
// bookkeeping stops paying for itself.
func ReasonableBucketCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n < 1 {
		n = 1
	}
	if n > 256 {
		n = 256
	}
	return n
}

// BucketIndex maps a 64-bit identity hash to a bucket index.
// A bucket count is not required to be a power of two (buffers are spread
// round-robin at init), but the mask fast path is used when it is.
func BucketIndex(hash uint64, buckets int) int {
	if buckets <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(buckets)) {
		return int(hash & uint64(buckets-1))
	}
	return int(hash % uint64(buckets))
}
