package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/formgest/internal/generate"
)

// MaxRetries bounds completion attempts per response.
const MaxRetries = 3

const maxBackoff = 30 * time.Second

// IsRetryable reports whether a completion error is transient. A cancelled
// or expired job context never is, even when the model call timed out.
func IsRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var retryErr *generate.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > maxBackoff || base <= 0 {
		base = maxBackoff
	}
	return base + time.Duration(rand.Int64N(int64(base)/2))
}

// sleep waits for d or until ctx is done.
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
