package workflow

import (
	"context"
	"time"
)

// BackoffPolicy selects how the delay between retry attempts grows.
type BackoffPolicy string

const (
	// BackoffFixed waits the base delay between every attempt.
	BackoffFixed BackoffPolicy = "fixed"
	// BackoffExponential doubles the delay each attempt, capped at Max.
	BackoffExponential BackoffPolicy = "exponential"
)

// Backoff computes the wait before a retry attempt.
type Backoff struct {
	Policy BackoffPolicy
	// Base is the delay before the first retry.
	Base time.Duration
	// Max caps the exponential delay. Zero means no cap.
	Max time.Duration
}

// Delay returns the wait before retry attempt n (1-indexed: n=1 is the
// first retry after the initial failure).
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	base := b.Base
	if base <= 0 {
		base = time.Second
	}

	d := base
	if b.Policy == BackoffExponential {
		for i := 1; i < n; i++ {
			d *= 2
			if b.Max > 0 && d >= b.Max {
				d = b.Max
				break
			}
		}
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// sleep waits for d or until ctx is done, returning ctx.Err() in the
// latter case so cancellation interrupts a backoff wait.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
