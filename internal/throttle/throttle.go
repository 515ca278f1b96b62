// Package throttle provides FIFO admission control for long-running
// operations. At most a fixed number of admitted operations run
// concurrently; the rest wait in arrival order for a slot, and waiters
// cancelled before being admitted never start.
package throttle

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency bounds simultaneous operations when no explicit
// limit is given.
const DefaultConcurrency = 4

// Throttle admits up to a fixed number of concurrent operations.
// The zero value is not usable; construct with New.
type Throttle struct {
	sem *semaphore.Weighted
}

// New returns a Throttle admitting up to limit concurrent operations.
// Non-positive limits fall back to DefaultConcurrency.
func New(limit int) *Throttle {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Throttle{sem: semaphore.NewWeighted(int64(limit))}
}

// Acquire blocks until a slot is free or ctx is cancelled. Waiters are
// served in FIFO order; a cancelled waiter is removed from the queue
// without ever being admitted.
func (t *Throttle) Acquire(ctx context.Context) error {
	return t.sem.Acquire(ctx, 1)
}

// Release frees a slot, letting the next queued operation start. Must be
// called exactly once per successful Acquire, whether the operation
// completed, failed, or was cancelled mid-flight.
func (t *Throttle) Release() {
	t.sem.Release(1)
}

// Do runs fn under an admission slot, releasing it when fn returns.
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.Acquire(ctx); err != nil {
		return err
	}
	defer t.Release()
	return fn(ctx)
}

// Wrap returns a function with the same shape as fn whose invocations
// are admitted through t.
func Wrap[T any](t *Throttle, fn func(ctx context.Context, in T) error) func(ctx context.Context, in T) error {
	return func(ctx context.Context, in T) error {
		if err := t.Acquire(ctx); err != nil {
			return err
		}
		defer t.Release()
		return fn(ctx, in)
	}
}
