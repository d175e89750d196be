package bcache

import "sync"

// bucket is one hash shard: an ordered list of buffer slots threaded
// through handle links in the slot arena (head = most recently used,
// tail = least). A single mutex guards both the list shape and the claim
// flags of its members; eviction reserves a slot by setting its claimed
// flag under this lock rather than taking a second, competing lock.
type bucket struct {
	mu   sync.Mutex
	idx  int32
	head int32 // MRU end
	tail int32 // LRU end
	n    int
}

// lookup returns the handle of the slot caching (dev, blockno), or
// noHandle. Slots claimed for eviction are mid-relabel and never match;
// the caller treats them as a miss.
func (bk *bucket) lookup(slots []Buffer, dev, blockno uint32) int32 {
	for h := bk.head; h != noHandle; h = slots[h].next {
		b := &slots[h]
		if b.dev == dev && b.blockno == blockno && !b.claimed {
			return h
		}
	}
	return noHandle
}

// oldestFree walks from the LRU end and returns the first slot that is
// neither held nor claimed, or noHandle.
func (bk *bucket) oldestFree(slots []Buffer) int32 {
	for h := bk.tail; h != noHandle; h = slots[h].prev {
		b := &slots[h]
		if b.refcnt == 0 && !b.claimed {
			return h
		}
	}
	return noHandle
}

// pushFront links the slot at the MRU end in O(1).
func (bk *bucket) pushFront(slots []Buffer, h int32) {
	b := &slots[h]
	b.prev = noHandle
	b.next = bk.head
	if bk.head != noHandle {
		slots[bk.head].prev = h
	}
	bk.head = h
	if bk.tail == noHandle {
		bk.tail = h
	}
	b.bucket = bk.idx
	bk.n++
}

// pushBack links the slot at the LRU end in O(1).
func (bk *bucket) pushBack(slots []Buffer, h int32) {
	b := &slots[h]
	b.next = noHandle
	b.prev = bk.tail
	if bk.tail != noHandle {
		slots[bk.tail].next = h
	}
	bk.tail = h
	if bk.head == noHandle {
		bk.head = h
	}
	b.bucket = bk.idx
	bk.n++
}

// remove unlinks the slot from anywhere in the list in O(1).
func (bk *bucket) remove(slots []Buffer, h int32) {
	b := &slots[h]
	if b.prev != noHandle {
		slots[b.prev].next = b.next
	}
	if b.next != noHandle {
		slots[b.next].prev = b.prev
	}
	if bk.head == h {
		bk.head = b.next
	}
	if bk.tail == h {
		bk.tail = b.prev
	}
	b.prev, b.next = noHandle, noHandle
	bk.n--
}

// moveToFront promotes the slot to the MRU end in O(1).
func (bk *bucket) moveToFront(slots []Buffer, h int32) {
	if bk.head == h {
		return
	}
	bk.remove(slots, h)
	bk.pushFront(slots, h)
}
