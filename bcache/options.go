package bcache

import "sync/atomic"

// Clock supplies the monotonic recency stamp recorded when a buffer is
// released. The cache never advances it, only reads it; ticks need not be
// real time, they only need to be non-decreasing.
type Clock interface{ Tick() int64 }

// Options configures the pool. Zero values are safe where noted;
// defaults are applied in New():
//   - BlockSize <= 0 -> 4096
//   - Buckets   <= 0 -> auto (a heuristic from CPU parallelism)
//   - nil Metrics    -> NoopMetrics
//   - nil Clock      -> an internal monotonic counter
type Options struct {
	// BlockSize is the fixed content size of every buffer, in bytes.
	BlockSize int

	// Buffers is the total slot count of the pool. Must be > 0.
	Buffers int

	// Buckets is the number of hash buckets. It need not divide Buffers
	// evenly and need not be a power of two; slots are distributed
	// round-robin so the first Buffers mod Buckets buckets get one extra.
	Buckets int

	// Clock overrides the recency source (tests, or a scheduler tick).
	Clock Clock

	// OnEvict is called when a cached block's identity is recycled for
	// another block. It runs outside any bucket lock but before the slot
	// becomes visible under its new identity; keep it lightweight.
	OnEvict func(dev, blockno uint32)

	// Metrics receives hit/miss/evict/transfer signals.
	Metrics Metrics
}

// countingClock is the default Clock: a process-local monotonic counter.
type countingClock struct{ t atomic.Int64 }

func (c *countingClock) Tick() int64 { return c.t.Add(1) }
