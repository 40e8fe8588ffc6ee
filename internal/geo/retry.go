package geo

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy is a fixed-delay retry budget. MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Jitter      time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: time.Second}

func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Nanosecond
	}
	b := retry.NewConstant(delay)
	if p.Jitter > 0 {
		b = retry.WithJitter(p.Jitter, b)
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// Do runs fn until it succeeds or the attempts are spent, returning the last
// error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
