package subgraph

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTransient marks failures worth retrying: network errors, throttling,
// 5xx responses and indexer-side GraphQL errors.
var ErrTransient = errors.New("transient subgraph error")

// RetryPolicy is the single retry rule shared by every event kind.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the second attempt
	Multiplier  float64       // delay growth per attempt
}

// DefaultRetryPolicy returns 3 attempts, 500ms base delay, x2 growth.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.BaseDelay * time.Duration(1<<uint(max(p.MaxAttempts, 1)))
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds, fails permanently or the attempts run out.
// Only errors wrapping ErrTransient are retried. onRetry, if set, is called
// before each sleep with the failed attempt's error.
func (p RetryPolicy) Do(ctx context.Context, op func() error, onRetry func(err error, wait time.Duration)) error {
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}

	var notify backoff.Notify
	if onRetry != nil {
		notify = backoff.Notify(onRetry)
	}
	return backoff.RetryNotify(wrapped, p.backOff(ctx), notify)
}
