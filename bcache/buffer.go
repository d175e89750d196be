package bcache

// NoDevice marks a buffer slot that holds no cached block. Slots start out
// free and return to this identity when they lose an eviction race.
const NoDevice = ^uint32(0)

// noHandle is the nil value for slot handles.
const noHandle = int32(-1)

// Buffer is one cache slot: the identity of the cached block, its content,
// and the bookkeeping the pool needs to pick eviction victims.
//
// Field ownership is split across two locks. Identity and bookkeeping
// (dev, blockno, refcnt, recency, claimed, list links, bucket) are guarded
// by the owning bucket's lock; content (data, valid) is guarded by the
// buffer's blocking content lock. Identity is only rewritten while the slot
// is claimed with refcnt == 0, when no other goroutine can hold or reach it.
type Buffer struct {
	lk contentLock

	handle int32
	bucket int32 // index of the bucket whose list currently links this slot
	prev   int32 // slot handles, noHandle at the list ends
	next   int32

	dev     uint32
	blockno uint32
	refcnt  int32
	recency int64
	claimed bool

	valid bool
	data  []byte
}

// Data returns the block content. The caller must hold the buffer (between
// Read and Release) to touch it.
func (b *Buffer) Data() []byte { return b.data }

// Device returns the device id of the cached block.
func (b *Buffer) Device() uint32 { return b.dev }

// BlockNumber returns the block number of the cached block.
func (b *Buffer) BlockNumber() uint32 { return b.blockno }
