package device

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Throttled wraps a Device and bounds its transfer load: a weighted
// semaphore caps the number of in-flight transfers and an optional rate
// limiter caps throughput in bytes per second. Useful when the cache sits
// on top of a device shared with other work.
type Throttled struct {
	inner Device
	sem   *semaphore.Weighted // nil if unlimited
	lim   *rate.Limiter       // nil if unlimited
}

// NewThrottled wraps inner. maxInFlight <= 0 means unlimited concurrency;
// bytesPerSec <= 0 means unlimited throughput.
func NewThrottled(inner Device, maxInFlight int64, bytesPerSec int64) *Throttled {
	t := &Throttled{inner: inner}
	if maxInFlight > 0 {
		t.sem = semaphore.NewWeighted(maxInFlight)
	}
	if bytesPerSec > 0 {
		t.lim = rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))
	}
	return t
}

// BlockSize returns the wrapped device's block size.
func (d *Throttled) BlockSize() int { return d.inner.BlockSize() }

func (d *Throttled) ReadBlock(ctx context.Context, blockno uint32, p []byte) error {
	if err := d.admit(ctx); err != nil {
		return err
	}
	defer d.done()
	return d.inner.ReadBlock(ctx, blockno, p)
}

func (d *Throttled) WriteBlock(ctx context.Context, blockno uint32, p []byte) error {
	if err := d.admit(ctx); err != nil {
		return err
	}
	defer d.done()
	return d.inner.WriteBlock(ctx, blockno, p)
}

// admit acquires a transfer slot and waits out the rate limiter.
func (d *Throttled) admit(ctx context.Context) error {
	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	if d.lim != nil {
		if err := d.lim.WaitN(ctx, d.inner.BlockSize()); err != nil {
			if d.sem != nil {
				d.sem.Release(1)
			}
			return err
		}
	}
	return nil
}

func (d *Throttled) done() {
	if d.sem != nil {
		d.sem.Release(1)
	}
}

var _ Device = (*Throttled)(nil)
