package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry knobs. Variables so tests can shorten the intervals.
var (
	retryInitialInterval = 250 * time.Millisecond
	retryMaxElapsed      = 10 * time.Second
	retryMaxAttempts     = uint64(3)
)

// WithRetry runs fn, retrying transient RemoteErrors (rate limiting, 5xx)
// with bounded exponential backoff. Any other error kind surfaces
// immediately. The final transient error surfaces unchanged once the retry
// budget is spent.
func WithRetry(ctx context.Context, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInitialInterval
	eb.MaxElapsedTime = retryMaxElapsed

	bo := backoff.WithContext(backoff.WithMaxRetries(eb, retryMaxAttempts), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		var re *RemoteError
		if errors.As(err, &re) && re.Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}
