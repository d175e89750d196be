package bcache

import "errors"

var (
	// ErrNoBuffers is returned when every slot in the pool is held and no
	// eviction victim exists.
	ErrNoBuffers = errors.New("bcache: no evictable buffer")

	// ErrUnknownDevice is returned for operations against a device id
	// that was never mounted (or has been unmounted).
	ErrUnknownDevice = errors.New("bcache: unknown device")

	// ErrDeviceMounted is returned by Mount for an id already in use.
	ErrDeviceMounted = errors.New("bcache: device already mounted")

	// ErrClosed is returned for operations on a closed pool.
	ErrClosed = errors.New("bcache: pool is closed")
)
