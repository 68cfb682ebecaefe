package acquisition

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy decides how failed fetches are repeated. Attempts are spaced by
// a constant Interval. MaxAttempts of zero retries until the context ends,
// leaving the watchdog as the only backstop.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Unbounded reports whether the policy never gives up on its own.
func (p RetryPolicy) Unbounded() bool { return p.MaxAttempts <= 0 }

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if !p.Unbounded() {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// retry runs op until it succeeds or the policy gives up. notify is called after
// each failed attempt that will be retried.
func retry[T any](ctx context.Context, p RetryPolicy, op func() (T, error), notify func(error, time.Duration)) (T, error) {
	return backoff.RetryNotifyWithData(op, p.backOff(ctx), notify)
}
