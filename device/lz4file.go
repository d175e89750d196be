package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
)

// LZ4File slot layout: a fixed 16-byte header followed by up to one block
// of payload. Keeping slots fixed-size preserves O(1) block addressing;
// compression only reduces the bytes that actually hit the disk, not the
// file's logical layout.
//
//	[0]     encoding (encNone | encRaw | encLZ4)
//	[1:4]   reserved, zero
//	[4:8]   payload length (little endian)
//	[8:16]  xxhash64 of the stored payload
const lz4HeaderSize = 16

const (
	encNone = 0 // never written; reads as a zero block
	encRaw  = 1 // stored uncompressed (incompressible data)
	encLZ4  = 2 // lz4 block compressed
)

// LZ4File is a file-backed block device that compresses each block with
// the LZ4 block codec and guards it with an xxhash checksum. Blocks that
// do not shrink are stored raw. A checksum mismatch or malformed header
// surfaces as ErrCorrupted.
type LZ4File struct {
	f         *os.File
	blockSize int
	slotSize  int64
}

// OpenLZ4File opens (creating if necessary) an LZ4-compressed file device.
func OpenLZ4File(path string, blockSize int) (*LZ4File, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("device: block size must be > 0, got %d", blockSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	return &LZ4File{
		f:         f,
		blockSize: blockSize,
		slotSize:  int64(lz4HeaderSize + blockSize),
	}, nil
}

// BlockSize returns the device block size.
func (d *LZ4File) BlockSize() int { return d.blockSize }

// ReadBlock reads and verifies one slot, decompressing if needed.
func (d *LZ4File) ReadBlock(_ context.Context, blockno uint32, p []byte) error {
	if err := checkBlockSize(p, d.blockSize); err != nil {
		return err
	}
	slot := make([]byte, d.slotSize)
	n, err := d.f.ReadAt(slot, int64(blockno)*d.slotSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("device: read block %d: %w", blockno, err)
	}
	clear(slot[n:])

	enc := slot[0]
	length := binary.LittleEndian.Uint32(slot[4:8])
	sum := binary.LittleEndian.Uint64(slot[8:16])

	if enc == encNone {
		// Unwritten slot (or a hole): a zero block.
		clear(p)
		return nil
	}
	if int(length) > d.blockSize {
		return fmt.Errorf("%w: block %d: payload length %d exceeds block size", ErrCorrupted, blockno, length)
	}
	payload := slot[lz4HeaderSize : lz4HeaderSize+int(length)]
	if xxhash.Sum64(payload) != sum {
		return fmt.Errorf("%w: block %d: checksum mismatch", ErrCorrupted, blockno)
	}

	switch enc {
	case encRaw:
		if int(length) != d.blockSize {
			return fmt.Errorf("%w: block %d: raw payload truncated", ErrCorrupted, blockno)
		}
		copy(p, payload)
		return nil
	case encLZ4:
		n, err := lz4.UncompressBlock(payload, p)
		if err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrCorrupted, blockno, err)
		}
		if n != d.blockSize {
			return fmt.Errorf("%w: block %d: decompressed size %d", ErrCorrupted, blockno, n)
		}
		return nil
	default:
		return fmt.Errorf("%w: block %d: unknown encoding %d", ErrCorrupted, blockno, enc)
	}
}

// WriteBlock compresses and writes one slot.
func (d *LZ4File) WriteBlock(_ context.Context, blockno uint32, p []byte) error {
	if err := checkBlockSize(p, d.blockSize); err != nil {
		return err
	}
	slot := make([]byte, d.slotSize)

	dst := make([]byte, lz4.CompressBlockBound(d.blockSize))
	n, err := lz4.CompressBlock(p, dst, nil)
	if err != nil {
		return fmt.Errorf("device: compress block %d: %w", blockno, err)
	}

	var payload []byte
	if n > 0 && n < d.blockSize {
		slot[0] = encLZ4
		payload = dst[:n]
	} else {
		// Incompressible; store as-is.
		slot[0] = encRaw
		payload = p
	}
	binary.LittleEndian.PutUint32(slot[4:8], uint32(len(payload)))
	binary.LittleEndian.PutUint64(slot[8:16], xxhash.Sum64(payload))
	copy(slot[lz4HeaderSize:], payload)

	if _, err := d.f.WriteAt(slot, int64(blockno)*d.slotSize); err != nil {
		return fmt.Errorf("device: write block %d: %w", blockno, err)
	}
	return nil
}

// Sync flushes written slots to stable storage.
func (d *LZ4File) Sync() error { return d.f.Sync() }

// Close syncs and closes the backing file.
func (d *LZ4File) Close() error {
	if err := d.f.Sync(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}

var _ Device = (*LZ4File)(nil)
