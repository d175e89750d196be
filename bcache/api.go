package bcache

import (
	"context"

	"github.com/IvanBrykalov/bufcache/device"
)

// Cache is the block-cache interface consumed by file-system logic.
// All methods are safe for concurrent use by multiple goroutines.
//
// The holding discipline mirrors a kernel buffer cache: Read hands back a
// buffer that the caller holds exclusively; the caller edits Data and calls
// Write to push it to the device, then Release. Only one goroutine at a
// time holds a given buffer, so buffers should not be kept longer than
// necessary. Pin/Unpin keep a buffer resident across a Release/Read gap.
type Cache interface {
	// Mount registers a block device under an id; Unmount removes it.
	Mount(dev uint32, d device.Device) error
	Unmount(dev uint32) error

	// Read returns the buffer caching (dev, blockno), locked and filled
	// from the device on first use. Blocks if another goroutine holds the
	// buffer. Fails with ErrNoBuffers when the pool has no evictable slot.
	Read(ctx context.Context, dev, blockno uint32) (*Buffer, error)

	// Write transfers a held buffer's content to its device.
	Write(ctx context.Context, b *Buffer) error

	// Release gives up a held buffer, moving it to the hot end of its
	// bucket once the last holder lets go. Do not use b afterwards.
	Release(b *Buffer)

	// Pin and Unpin adjust the refcount without touching list position,
	// keeping a buffer eviction-proof across multi-step updates.
	Pin(b *Buffer)
	Unpin(b *Buffer)

	// Len returns the number of slots currently caching a block.
	Len() int

	// Stats returns a snapshot of the pool counters.
	Stats() Stats

	// Close marks the cache closed; subsequent Reads fail with ErrClosed.
	Close() error
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Hits         uint64
	Misses       uint64
	Evictions    uint64
	DeviceReads  uint64
	DeviceWrites uint64
}

// Compile-time check that Pool satisfies Cache.
var _ Cache = (*Pool)(nil)
