package source

import (
	"context"
	"sync"
	"time"
)

// Throttle spaces successive requests to the same publisher by a fixed delay.
// It is shared by every source of a refresh run.
type Throttle struct {
	delay time.Duration
	mu    sync.Mutex
	next  map[string]time.Time
}

// NewThrottle creates a throttle; a zero delay never waits
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{delay: delay, next: make(map[string]time.Time)}
}

// Wait blocks until the publisher may be contacted again, or ctx is done
func (t *Throttle) Wait(ctx context.Context, publisher string) error {
	if t == nil || t.delay <= 0 {
		return ctx.Err()
	}

	t.mu.Lock()
	now := time.Now()
	at := t.next[publisher]
	if at.Before(now) {
		at = now
	}
	// reserve the slot after ours before releasing the lock
	t.next[publisher] = at.Add(t.delay)
	t.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
