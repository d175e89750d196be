package device

import (
	"context"
	"fmt"
	"io"
	"os"
)

// File is a block device backed by a regular file. Block n lives at byte
// offset n*BlockSize. Reads past the end of the file return zeroes, so a
// sparse or freshly created file behaves like a zeroed disk.
type File struct {
	f         *os.File
	blockSize int
}

// OpenFile opens (creating if necessary) a file-backed device.
func OpenFile(path string, blockSize int) (*File, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("device: block size must be > 0, got %d", blockSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	return &File{f: f, blockSize: blockSize}, nil
}

// BlockSize returns the device block size.
func (d *File) BlockSize() int { return d.blockSize }

// ReadBlock reads one block at its fixed offset.
func (d *File) ReadBlock(_ context.Context, blockno uint32, p []byte) error {
	if err := checkBlockSize(p, d.blockSize); err != nil {
		return err
	}
	off := int64(blockno) * int64(d.blockSize)
	n, err := d.f.ReadAt(p, off)
	if err == io.EOF {
		// Short read at the tail or a block past EOF: the rest is zeroes.
		clear(p[n:])
		return nil
	}
	if err != nil {
		return fmt.Errorf("device: read block %d: %w", blockno, err)
	}
	return nil
}

// WriteBlock writes one block at its fixed offset.
func (d *File) WriteBlock(_ context.Context, blockno uint32, p []byte) error {
	if err := checkBlockSize(p, d.blockSize); err != nil {
		return err
	}
	off := int64(blockno) * int64(d.blockSize)
	if _, err := d.f.WriteAt(p, off); err != nil {
		return fmt.Errorf("device: write block %d: %w", blockno, err)
	}
	return nil
}

// Sync flushes written blocks to stable storage.
func (d *File) Sync() error { return d.f.Sync() }

// Close syncs and closes the backing file.
func (d *File) Close() error {
	if err := d.f.Sync(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}

var _ Device = (*File)(nil)
