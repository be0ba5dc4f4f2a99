package marketdata

import (
	"context"
	"sync"
	"time"
)

// sleepFunc blocks for d or until ctx is done. Injectable so tests can run
// time-dependent code without real sleeps.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rateLimiter enforces a minimum spacing between any two outbound network
// calls, process-wide. Serializing outbound timing across symbols is
// intentional: the remote feed's rate limit is global, so this is the one
// place where unrelated symbols are expected to contend.
type rateLimiter struct {
	interval time.Duration
	now      func() time.Time
	sleep    sleepFunc

	mu   sync.Mutex
	next time.Time
}

func newRateLimiter(interval time.Duration, now func() time.Time, sleep sleepFunc) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = sleepCtx
	}
	return &rateLimiter{interval: interval, now: now, sleep: sleep}
}

// Wait blocks until the minimum interval since the previous admission has
// elapsed, or returns early when ctx is canceled. Each caller reserves its
// slot under the lock before sleeping, so concurrent waiters are admitted
// one interval apart instead of piling onto the same slot. The lock is
// never held across the sleep.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	r.mu.Lock()
	now := r.now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	if wait := slot.Sub(now); wait > 0 {
		return r.sleep(ctx, wait)
	}
	return nil
}
