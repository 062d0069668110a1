package replay

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

const (
	defaultRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// retrier repeats a store write with doubling backoff. Context errors
// returned by the write end the loop at once.
type retrier struct {
	attempts uint
	backoff  time.Duration
	logger   *zap.Logger
}

func newRetrier(maxRetries int, backoff time.Duration, logger *zap.Logger) retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return retrier{attempts: uint(maxRetries) + 1, backoff: backoff, logger: logger}
}

func (r retrier) do(ctx context.Context, op string, fn func(context.Context) error) error {
	return retry.Do(
		func() error { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.backoff),
		retry.MaxDelay(maxRetryBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("store attempt failed", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}
