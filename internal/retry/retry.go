// Package retry provides the one retry policy applied to every external
// network call (region lookup, transaction windows, OCR pages). Retries are
// scoped per call: a late success on one call never restarts a sibling.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// sleepFunc is the sleep used between attempts (injectable for tests).
var sleepFunc = sleepCtx

// Permanent marks an error as not worth retrying.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Stop wraps err so the policy fails immediately without further attempts.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// Policy is a bounded exponential backoff with jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // fraction of the delay randomized, 0 disables

	rand *rand.Rand
}

// NewPolicy creates a policy with sane bounds applied.
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration, jitter float64) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxAttempts > 5 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Jitter:      jitter,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. It returns
// the first success, the wrapped error of a Permanent failure, or the last
// error once attempts are exhausted. Context cancellation stops immediately.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err

		if attempt < p.MaxAttempts-1 {
			if err := sleepFunc(ctx, p.Delay(attempt)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

// Delay computes the backoff for a zero-based attempt index: base<<attempt,
// capped at MaxDelay, with ±Jitter applied.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	if p.Jitter > 0 && p.rand != nil {
		// spread across [d*(1-jitter), d*(1+jitter)]
		span := float64(d) * p.Jitter
		d = time.Duration(float64(d) - span + p.rand.Float64()*2*span)
		if d < 0 {
			d = 0
		}
	}
	return d
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
