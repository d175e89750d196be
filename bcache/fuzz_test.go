//go:build go1.18

package bcache

import (
	"bytes"
	"context"
	"testing"

	"github.com/IvanBrykalov/bufcache/device"
)

// Fuzz the write/read round trip under arbitrary identities and payloads.
// Guards against panics in the hash/bucket plumbing and ensures content
// survives both the cached path and a device round trip after eviction.
func FuzzPool_RoundTrip(f *testing.F) {
	f.Add(uint32(1), uint32(0), []byte("hello"))
	f.Add(uint32(7), uint32(1<<31), []byte{})
	f.Add(uint32(0), uint32(12345), bytes.Repeat([]byte{0xAA}, 64))

	f.Fuzz(func(t *testing.T, dev, blockno uint32, payload []byte) {
		if dev == NoDevice {
			dev = 0
		}
		const blockSize = 64
		if len(payload) > blockSize {
			payload = payload[:blockSize]
		}

		c := New(Options{Buffers: 4, Buckets: 3, BlockSize: blockSize})
		t.Cleanup(func() { _ = c.Close() })
		if err := c.Mount(dev, device.NewMem(blockSize)); err != nil {
			t.Fatalf("Mount: %v", err)
		}
		ctx := context.Background()

		b, err := c.Read(ctx, dev, blockno)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		copy(b.Data(), payload)
		if err := c.Write(ctx, b); err != nil {
			t.Fatalf("Write: %v", err)
		}
		c.Release(b)

		// Cached copy.
		b, err = c.Read(ctx, dev, blockno)
		if err != nil {
			t.Fatalf("Read back: %v", err)
		}
		if !bytes.Equal(b.Data()[:len(payload)], payload) {
			t.Fatalf("cached content mismatch")
		}
		c.Release(b)

		// Push the block out, then read it back from the device.
		for i := uint32(1); i <= 4; i++ {
			nb, err := c.Read(ctx, dev, blockno+i)
			if err != nil {
				t.Fatalf("Read filler %d: %v", i, err)
			}
			c.Release(nb)
		}
		b, err = c.Read(ctx, dev, blockno)
		if err != nil {
			t.Fatalf("Read after eviction: %v", err)
		}
		if !bytes.Equal(b.Data()[:len(payload)], payload) {
			t.Fatalf("device content mismatch")
		}
		c.Release(b)
	})
}
