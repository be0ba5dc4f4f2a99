package marketdata

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jpillora/backoff"

	"marketfeed/internal/ports"
)

// retryPolicy bounds a single logical fetch: up to attempts tries with
// exponential delay between them, capped at maxDelay and optionally
// jittered so symbols retried at the same moment do not hammer the feed in
// lockstep.
type retryPolicy struct {
	attempts          int
	baseDelay         time.Duration
	maxDelay          time.Duration
	jitter            bool
	jitterRange       float64
	retryOnPermission bool

	sleep sleepFunc
	randf func() float64
}

func newRetryPolicy(attempts int, base, max time.Duration, jitter bool, jitterRange float64, retryOnPermission bool, sleep sleepFunc) *retryPolicy {
	if sleep == nil {
		sleep = sleepCtx
	}
	return &retryPolicy{
		attempts:          attempts,
		baseDelay:         base,
		maxDelay:          max,
		jitter:            jitter,
		jitterRange:       jitterRange,
		retryOnPermission: retryOnPermission,
		sleep:             sleep,
		randf:             rand.Float64,
	}
}

// Do runs fn until it succeeds, a non-retryable error occurs, or the
// attempt budget is exhausted; in that case the last error is returned.
//
// Failure classification matters here. A no-data result is semantic, not
// transient: the provider answered and will answer the same a moment
// later, so it is never retried. Permission failures are skipped as well
// unless explicitly configured otherwise. Context cancellation aborts the
// current attempt and any pending sleep.
func (p *retryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    p.baseDelay,
		Max:    p.maxDelay,
		Factor: 2,
	}

	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return err
		}
		if ports.IsNoData(err) {
			return err
		}
		if ports.IsPermission(err) && !p.retryOnPermission {
			return err
		}
		if attempt == p.attempts-1 {
			break
		}
		if err := p.sleep(ctx, p.nextDelay(b)); err != nil {
			return err
		}
	}
	return lastErr
}

// nextDelay takes the capped exponential delay from the backoff schedule
// and applies the optional symmetric jitter fraction on top.
func (p *retryPolicy) nextDelay(b *backoff.Backoff) time.Duration {
	d := b.Duration()
	if p.jitter && p.jitterRange > 0 {
		d = time.Duration(float64(d) * (1 + p.jitterRange*(2*p.randf()-1)))
	}
	if d < 0 {
		d = 0
	}
	return d
}
