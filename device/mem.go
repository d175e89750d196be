package device

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mem is an in-memory block device. It is primarily useful for tests and
// examples; Reads and Writes transfer counters make it easy to assert how
// many device transfers a cache workload actually issued.
type Mem struct {
	blockSize int

	mu     sync.RWMutex
	blocks map[uint32][]byte

	reads  atomic.Int64
	writes atomic.Int64
}

// NewMem creates an in-memory device with the given block size.
func NewMem(blockSize int) *Mem {
	if blockSize <= 0 {
		panic("device: block size must be > 0")
	}
	return &Mem{
		blockSize: blockSize,
		blocks:    make(map[uint32][]byte),
	}
}

// BlockSize returns the device block size.
func (d *Mem) BlockSize() int { return d.blockSize }

// ReadBlock copies the block into p. Unwritten blocks read as zeroes.
func (d *Mem) ReadBlock(_ context.Context, blockno uint32, p []byte) error {
	if err := checkBlockSize(p, d.blockSize); err != nil {
		return err
	}
	d.reads.Add(1)

	d.mu.RLock()
	blk, ok := d.blocks[blockno]
	d.mu.RUnlock()

	if !ok {
		clear(p)
		return nil
	}
	copy(p, blk)
	return nil
}

// WriteBlock stores a copy of p as the block's content.
func (d *Mem) WriteBlock(_ context.Context, blockno uint32, p []byte) error {
	if err := checkBlockSize(p, d.blockSize); err != nil {
		return err
	}
	d.writes.Add(1)

	blk := make([]byte, d.blockSize)
	copy(blk, p)

	d.mu.Lock()
	d.blocks[blockno] = blk
	d.mu.Unlock()
	return nil
}

// Stats returns the number of block reads and writes issued so far.
func (d *Mem) Stats() (reads, writes int64) {
	return d.reads.Load(), d.writes.Load()
}

// ResetStats zeroes the transfer counters.
func (d *Mem) ResetStats() {
	d.reads.Store(0)
	d.writes.Store(0)
}

var _ Device = (*Mem)(nil)
