package scanning

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ResourceManager bounds the number of probes running at once.
type ResourceManager interface {
	// Acquire blocks until a probe slot is available or ctx is done.
	Acquire(ctx context.Context) error

	// Release frees a slot obtained by Acquire.
	Release()

	// Active returns the number of slots currently held.
	Active() int

	// Available returns the number of free slots.
	Available() int

	// Peak returns the highest number of slots ever held at once.
	Peak() int
}

// FixedResourceManager implements ResourceManager with a fixed number of slots.
type FixedResourceManager struct {
	capacity int
	sem      *semaphore.Weighted
	active   atomic.Int64
	peak     atomic.Int64
}

var _ ResourceManager = (*FixedResourceManager)(nil)

// NewFixedResourceManager creates a resource manager with the given capacity.
func NewFixedResourceManager(capacity int) *FixedResourceManager {
	if capacity <= 0 {
		capacity = 1
	}

	return &FixedResourceManager{
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Acquire attempts to acquire a slot.
func (rm *FixedResourceManager) Acquire(ctx context.Context) error {
	if err := rm.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	n := rm.active.Add(1)
	for {
		peak := rm.peak.Load()
		if n <= peak || rm.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return nil
}

// Release releases a slot. The counter drops before the semaphore so that
// Active never reports more holders than the semaphore admits.
func (rm *FixedResourceManager) Release() {
	rm.active.Add(-1)
	rm.sem.Release(1)
}

// Active returns the current number of held slots.
func (rm *FixedResourceManager) Active() int {
	return int(rm.active.Load())
}

// Available returns the number of free slots.
func (rm *FixedResourceManager) Available() int {
	return rm.capacity - rm.Active()
}

// Peak returns the high-water mark of held slots.
func (rm *FixedResourceManager) Peak() int {
	return int(rm.peak.Load())
}

// Capacity returns the configured slot count.
func (rm *FixedResourceManager) Capacity() int {
	return rm.capacity
}
