package bcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/bufcache/device"
	"github.com/IvanBrykalov/bufcache/internal/util"
)

const defaultBlockSize = 4096

// Pool is the buffer cache: a fixed arena of slots hashed into buckets.
// Slots are allocated once and never freed; eviction recycles a slot's
// identity, not its storage.
type Pool struct {
	opt   Options
	clock Clock

	slots   []Buffer
	buckets []bucket

	devmu   sync.RWMutex
	devices map[uint32]device.Device

	closed atomic.Bool

	// hot counters (separate cache lines to avoid false sharing)
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
	reads  util.PaddedAtomicUint64
	writes util.PaddedAtomicUint64
}

// New constructs a pool with the provided Options.
func New(opt Options) Cache {
	if opt.Buffers <= 0 {
		panic("bcache: Buffers must be > 0")
	}
	if opt.BlockSize <= 0 {
		opt.BlockSize = defaultBlockSize
	}
	if opt.Buckets <= 0 {
		opt.Buckets = util.ReasonableBucketCount()
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	p := &Pool{
		opt:     opt,
		clock:   opt.Clock,
		slots:   make([]Buffer, opt.Buffers),
		buckets: make([]bucket, opt.Buckets),
		devices: make(map[uint32]device.Device),
	}
	if p.clock == nil {
		p.clock = &countingClock{}
	}

	for i := range p.buckets {
		bk := &p.buckets[i]
		bk.idx = int32(i)
		bk.head, bk.tail = noHandle, noHandle
	}

	// One contiguous backing array for all block content; each slot gets
	// a fixed window into it.
	backing := make([]byte, opt.Buffers*opt.BlockSize)
	for i := range p.slots {
		b := &p.slots[i]
		b.handle = int32(i)
		b.dev = NoDevice
		b.data = backing[i*opt.BlockSize : (i+1)*opt.BlockSize]
		// Round-robin: the first Buffers mod Buckets buckets end up with
		// one slot more than the rest.
		p.buckets[i%opt.Buckets].pushFront(p.slots, b.handle)
	}
	return p
}

// Mount registers a device under the given id.
func (p *Pool) Mount(dev uint32, d device.Device) error {
	if dev == NoDevice {
		return fmt.Errorf("bcache: device id %d is reserved", dev)
	}
	if d.BlockSize() != p.opt.BlockSize {
		return fmt.Errorf("bcache: device block size %d does not match pool block size %d",
			d.BlockSize(), p.opt.BlockSize)
	}
	p.devmu.Lock()
	defer p.devmu.Unlock()
	if _, ok := p.devices[dev]; ok {
		return fmt.Errorf("%w: %d", ErrDeviceMounted, dev)
	}
	p.devices[dev] = d
	return nil
}

// Unmount removes a device registration. Blocks of the device that are
// still cached simply age out; any further Read or Write against the id
// fails with ErrUnknownDevice.
func (p *Pool) Unmount(dev uint32) error {
	p.devmu.Lock()
	defer p.devmu.Unlock()
	if _, ok := p.devices[dev]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, dev)
	}
	delete(p.devices, dev)
	return nil
}

func (p *Pool) lookupDevice(dev uint32) (device.Device, error) {
	p.devmu.RLock()
	d, ok := p.devices[dev]
	p.devmu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDevice, dev)
	}
	return d, nil
}

func (p *Pool) bucketFor(dev, blockno uint32) *bucket {
	return &p.buckets[util.BucketIndex(util.HashBlock(dev, blockno), len(p.buckets))]
}

// acquire returns the slot caching (dev, blockno) with its content lock
// held and its refcount raised, recycling the globally least recently used
// free slot on a miss.
func (p *Pool) acquire(dev, blockno uint32) (*Buffer, error) {
	bk := p.bucketFor(dev, blockno)

	bk.mu.Lock()
	if h := bk.lookup(p.slots, dev, blockno); h != noHandle {
		b := &p.slots[h]
		b.refcnt++
		bk.mu.Unlock()
		p.hits.Add(1)
		p.opt.Metrics.Hit()
		b.lk.lock()
		return b, nil
	}
	bk.mu.Unlock()
	p.misses.Add(1)
	p.opt.Metrics.Miss()

	h, err := p.claimVictim()
	if err != nil {
		return nil, err
	}
	b := &p.slots[h]

	// Relabel under the victim's current bucket lock and take it off that
	// list. The claim flag keeps scans and lookups away, and refcnt == 0
	// guarantees there are no holders or waiters, so the identity and
	// valid flag are ours to rewrite.
	vb := &p.buckets[b.bucket]
	vb.mu.Lock()
	evictedDev, evictedBlock := b.dev, b.blockno
	vb.remove(p.slots, h)
	b.dev, b.blockno = dev, blockno
	b.valid = false
	b.refcnt = 1
	vb.mu.Unlock()

	if evictedDev != NoDevice {
		p.evicts.Add(1)
		p.opt.Metrics.Evict()
		if cb := p.opt.OnEvict; cb != nil {
			cb(evictedDev, evictedBlock)
		}
	}

	// Publish in the target bucket. The bucket lock was dropped during the
	// victim scan, so another goroutine may have cached the same block in
	// the meantime; without this re-check two live copies could exist.
	bk.mu.Lock()
	if hDup := bk.lookup(p.slots, dev, blockno); hDup != noHandle {
		dup := &p.slots[hDup]
		dup.refcnt++
		// Lost the race. Park the victim as a free slot at the cold end
		// of this bucket, first in line for the next eviction.
		b.dev, b.blockno = NoDevice, 0
		b.valid = false
		b.refcnt = 0
		b.recency = 0
		b.claimed = false
		bk.pushBack(p.slots, h)
		bk.mu.Unlock()
		dup.lk.lock()
		return dup, nil
	}
	b.claimed = false
	bk.pushFront(p.slots, h)
	bk.mu.Unlock()
	b.lk.lock()
	return b, nil
}

// claimVictim scans every bucket in ascending index order, takes each
// bucket's least recently used free slot as its candidate, and claims the
// candidate with the smallest recency stamp overall. At most one bucket
// lock is held at any instant; a candidate that loses to an older one is
// unclaimed before the scan moves on. Strictly older wins, so on equal
// stamps the earliest find is kept.
func (p *Pool) claimVictim() (int32, error) {
	best := noHandle
	var bestRecency int64
	for i := range p.buckets {
		cb := &p.buckets[i]
		cb.mu.Lock()
		h := cb.oldestFree(p.slots)
		if h == noHandle {
			cb.mu.Unlock()
			continue
		}
		r := p.slots[h].recency
		if best == noHandle || r < bestRecency {
			p.slots[h].claimed = true
			cb.mu.Unlock()
			if best != noHandle {
				p.unclaim(best)
			}
			best, bestRecency = h, r
		} else {
			cb.mu.Unlock()
		}
	}
	if best == noHandle {
		return noHandle, ErrNoBuffers
	}
	return best, nil
}

// unclaim releases a claimed slot back to its bucket's eviction candidates.
func (p *Pool) unclaim(h int32) {
	b := &p.slots[h]
	bk := &p.buckets[b.bucket]
	bk.mu.Lock()
	b.claimed = false
	bk.mu.Unlock()
}

// Read returns the buffer caching (dev, blockno), locked for the caller.
// On first use the content is filled with one device read. The caller must
// Release the buffer when done.
func (p *Pool) Read(ctx context.Context, dev, blockno uint32) (*Buffer, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	d, err := p.lookupDevice(dev)
	if err != nil {
		return nil, err
	}
	b, err := p.acquire(dev, blockno)
	if err != nil {
		return nil, err
	}
	if !b.valid {
		if err := d.ReadBlock(ctx, blockno, b.data); err != nil {
			p.Release(b)
			return nil, fmt.Errorf("bcache: read block %d on device %d: %w", blockno, dev, err)
		}
		b.valid = true
		p.reads.Add(1)
		p.opt.Metrics.Transfer(false)
	}
	return b, nil
}

// Write transfers the buffer's content to its device, unconditionally.
// The caller must hold the buffer; its refcount and list position are
// untouched.
func (p *Pool) Write(ctx context.Context, b *Buffer) error {
	if !b.lk.held() {
		panic("bcache: Write of a buffer that is not held")
	}
	d, err := p.lookupDevice(b.dev)
	if err != nil {
		return err
	}
	if err := d.WriteBlock(ctx, b.blockno, b.data); err != nil {
		return fmt.Errorf("bcache: write block %d on device %d: %w", b.blockno, b.dev, err)
	}
	p.writes.Add(1)
	p.opt.Metrics.Transfer(true)
	return nil
}

// Release gives up a held buffer: the content lock is dropped first, then
// the refcount. The last holder moves the slot to the hot end of its
// bucket and stamps the recency tick used for eviction ordering.
func (p *Pool) Release(b *Buffer) {
	if !b.lk.held() {
		panic("bcache: Release of a buffer that is not held")
	}
	b.lk.unlock()

	bk := &p.buckets[b.bucket]
	bk.mu.Lock()
	if b.refcnt <= 0 {
		bk.mu.Unlock()
		panic("bcache: Release without a matching Read")
	}
	b.refcnt--
	if b.refcnt == 0 {
		bk.moveToFront(p.slots, b.handle)
		b.recency = p.clock.Tick()
	}
	bk.mu.Unlock()
}

// Pin raises the buffer's refcount so it stays resident across operations
// that release the content lock transiently. The caller must currently
// hold the buffer.
func (p *Pool) Pin(b *Buffer) {
	bk := &p.buckets[b.bucket]
	bk.mu.Lock()
	if b.refcnt <= 0 {
		bk.mu.Unlock()
		panic("bcache: Pin of a buffer that is not held")
	}
	b.refcnt++
	bk.mu.Unlock()
}

// Unpin drops a Pin reference. Position and recency are untouched.
func (p *Pool) Unpin(b *Buffer) {
	bk := &p.buckets[b.bucket]
	bk.mu.Lock()
	if b.refcnt <= 0 {
		bk.mu.Unlock()
		panic("bcache: Unpin without a matching Pin")
	}
	b.refcnt--
	bk.mu.Unlock()
}

// Len returns the number of slots currently caching a block.
func (p *Pool) Len() int {
	total := 0
	for i := range p.buckets {
		bk := &p.buckets[i]
		bk.mu.Lock()
		for h := bk.head; h != noHandle; h = p.slots[h].next {
			if p.slots[h].dev != NoDevice {
				total++
			}
		}
		bk.mu.Unlock()
	}
	return total
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Hits:         p.hits.Load(),
		Misses:       p.misses.Load(),
		Evictions:    p.evicts.Load(),
		DeviceReads:  p.reads.Load(),
		DeviceWrites: p.writes.Load(),
	}
}

// Close marks the pool as closed. Future Read calls fail with ErrClosed;
// buffers already held can still be written and released.
func (p *Pool) Close() error {
	p.closed.Store(true)
	return nil
}
