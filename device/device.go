package device

import (
	"context"
	"errors"
	"fmt"
)

// ErrCorrupted is returned when an on-disk block fails its integrity check.
var ErrCorrupted = errors.New("device: block corrupted")

// Device is a fixed-block-size storage device. ReadBlock and WriteBlock
// transfer exactly one block; len(p) must equal BlockSize. Transfers are
// synchronous from the caller's point of view and may block; ctx bounds
// the wait for implementations that can honor it.
//
// Implementations must be safe for concurrent use: the buffer cache issues
// transfers for distinct blocks in parallel.
type Device interface {
	BlockSize() int
	ReadBlock(ctx context.Context, blockno uint32, p []byte) error
	WriteBlock(ctx context.Context, blockno uint32, p []byte) error
}

// checkBlockSize validates a transfer buffer against the device block size.
func checkBlockSize(p []byte, blockSize int) error {
	if len(p) != blockSize {
		return fmt.Errorf("device: transfer size %d does not match block size %d", len(p), blockSize)
	}
	return nil
}
