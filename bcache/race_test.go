package bcache

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/IvanBrykalov/bufcache/device"
)

// A mixed workload of concurrent Read/Write/Pin/Unpin/Release over a
// keyspace larger than the pool, so hits, misses, and evictions all race.
// Should pass under `-race` without detector reports.
func TestRace_MixedWorkload(t *testing.T) {
	c := New(Options{
		Buffers:   64,
		Buckets:   16,
		BlockSize: 128,
	})
	t.Cleanup(func() { _ = c.Close() })

	d := device.NewMem(128)
	if err := c.Mount(1, d); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	ctx := context.Background()

	workers := 4 * runtime.GOMAXPROCS(0)
	if workers > 32 {
		// Keep well below the slot count so the workload cannot
		// legitimately exhaust the pool.
		workers = 32
	}
	const keyspace = 512
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				blk := uint32(r.Intn(keyspace))
				b, err := c.Read(ctx, 1, blk)
				if err != nil {
					// Exhaustion is possible if every worker holds a
					// buffer at once; with 64 slots it should not be.
					t.Errorf("Read %d: %v", blk, err)
					return
				}
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5%: pin across a release/reacquire gap
					c.Pin(b)
					c.Release(b)
					b2, err := c.Read(ctx, 1, blk)
					if err != nil {
						t.Errorf("reacquire %d: %v", blk, err)
						c.Unpin(b)
						return
					}
					c.Unpin(b2)
					c.Release(b2)
					continue
				case 5, 6, 7, 8, 9, 10, 11, 12, 13, 14: // ~10%: write through
					b.Data()[0]++
					if err := c.Write(ctx, b); err != nil {
						t.Errorf("Write %d: %v", blk, err)
					}
				}
				c.Release(b)
			}
		}(w)
	}
	wg.Wait()

	// Quiescent: every slot back in exactly one list, nothing held.
	checkMembership(t, c)
	p := c.(*Pool)
	for i := range p.slots {
		if got := p.slots[i].refcnt; got != 0 {
			t.Fatalf("slot %d still has refcnt %d", i, got)
		}
		if p.slots[i].claimed {
			t.Fatalf("slot %d still claimed", i)
		}
	}
}

// Many goroutines miss on the same block at once: the duplicate re-check
// in the eviction path must collapse them onto one buffer.
func TestRace_ConcurrentMissSameBlock(t *testing.T) {
	for round := 0; round < 50; round++ {
		c := New(Options{Buffers: 8, Buckets: 4, BlockSize: 64})
		d := device.NewMem(64)
		if err := c.Mount(1, d); err != nil {
			t.Fatalf("Mount: %v", err)
		}
		ctx := context.Background()

		const goroutines = 8
		var (
			mu   sync.Mutex
			ptrs = make(map[*Buffer]struct{})
		)
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(goroutines)
		for i := 0; i < goroutines; i++ {
			go func() {
				defer wg.Done()
				<-start
				b, err := c.Read(ctx, 1, 42)
				if err != nil {
					t.Errorf("Read: %v", err)
					return
				}
				mu.Lock()
				ptrs[b] = struct{}{}
				mu.Unlock()
				c.Release(b)
			}()
		}
		close(start)
		wg.Wait()

		if len(ptrs) != 1 {
			t.Fatalf("round %d: one block mapped to %d buffers", round, len(ptrs))
		}
		checkMembership(t, c)
		_ = c.Close()
	}
}
