// Package bcache implements a fixed-size cache of disk-block buffers: the
// in-memory synchronization point through which all callers observe and
// mutate a given block of a block device.
//
// Design
//
//   - Storage: all buffers live in one arena allocated up front; they are
//     never freed, only relabeled. List links are integer handles into the
//     arena rather than raw pointers.
//
//   - Concurrency: buffers are hashed into buckets, each guarded by one
//     short-critical-section mutex covering the bucket's list shape and
//     the claim flags of its members. Block content is guarded separately
//     by a per-buffer blocking lock that the holder keeps between Read and
//     Release, so two goroutines can never see divergent copies of a block.
//
//   - Eviction: a miss scans all buckets in a fixed order, holding at most
//     one bucket lock at a time, and claims the unreferenced buffer with
//     the globally oldest release stamp. Buffers with a positive refcount
//     are never recycled. After the scan, the insert re-checks the target
//     bucket so a concurrent miss for the same block cannot create two
//     live copies.
//
//   - Devices: block devices are registered with Mount and addressed by a
//     numeric id; a miss triggers exactly one fill read, and Write pushes
//     content through synchronously. Device errors propagate to the caller
//     wrapped; they are never swallowed.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Transfer signals.
//     By default NoopMetrics is used; plug the Prometheus adapter from
//     metrics/prom to export them.
//
// Basic usage
//
//	c := bcache.New(bcache.Options{Buffers: 64, BlockSize: 4096})
//	_ = c.Mount(1, device.NewMem(4096))
//
//	b, err := c.Read(ctx, 1, 7)
//	if err != nil {
//	    return err
//	}
//	copy(b.Data(), payload)
//	if err := c.Write(ctx, b); err != nil {
//	    c.Release(b)
//	    return err
//	}
//	c.Release(b) // do not touch b afterwards
//
// Misuse of the holding discipline (writing or releasing a buffer that is
// not held) is a programming error and panics; operational failures such
// as device errors or pool exhaustion are returned as wrapped errors.
package bcache
