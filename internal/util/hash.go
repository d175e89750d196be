// Package util contains internal helpers (hashing, bucket mapping, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashBlock hashes a (device, block number) identity to 64 bits.
// xxhash spreads sequential block numbers far better than the classic
// (dev+blockno) mod n mapping, so hot block ranges do not pile into a
// single bucket.
func HashBlock(dev, blockno uint32) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:4], dev)
	binary.LittleEndian.PutUint32(b[4:8], blockno)
	return xxhash.Sum64(b[:])
}
