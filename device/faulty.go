package device

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is the default error produced by a Faulty device.
var ErrInjected = errors.New("device: injected fault")

// Faulty wraps a Device and injects errors, for exercising cache error
// paths in tests. Fail counters are consumed per transfer: with
// FailReadAfter=N the first N reads succeed and every later read fails.
type Faulty struct {
	Inner Device

	// Err is returned for injected failures; nil means ErrInjected.
	Err error

	// FailReadAfter / FailWriteAfter are the number of transfers allowed
	// to succeed before failures begin. -1 disables injection.
	FailReadAfter  int
	FailWriteAfter int

	mu     sync.Mutex
	reads  int
	writes int
}

// NewFaulty wraps inner with fault injection disabled on both paths.
func NewFaulty(inner Device) *Faulty {
	return &Faulty{Inner: inner, FailReadAfter: -1, FailWriteAfter: -1}
}

// BlockSize returns the wrapped device's block size.
func (d *Faulty) BlockSize() int { return d.Inner.BlockSize() }

func (d *Faulty) ReadBlock(ctx context.Context, blockno uint32, p []byte) error {
	d.mu.Lock()
	fail := d.FailReadAfter >= 0 && d.reads >= d.FailReadAfter
	d.reads++
	d.mu.Unlock()

	if fail {
		return d.err()
	}
	return d.Inner.ReadBlock(ctx, blockno, p)
}

func (d *Faulty) WriteBlock(ctx context.Context, blockno uint32, p []byte) error {
	d.mu.Lock()
	fail := d.FailWriteAfter >= 0 && d.writes >= d.FailWriteAfter
	d.writes++
	d.mu.Unlock()

	if fail {
		return d.err()
	}
	return d.Inner.WriteBlock(ctx, blockno, p)
}

func (d *Faulty) err() error {
	if d.Err != nil {
		return d.Err
	}
	return ErrInjected
}

var _ Device = (*Faulty)(nil)
