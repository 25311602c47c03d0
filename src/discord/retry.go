package discord

import (
	"context"
	"time"

	"github.com/stake-plus/giveaways/src/logging"
)

// withRetry retries fn on Discord rate limits and server errors with
// exponential backoff. Other errors are returned immediately.
func withRetry(ctx context.Context, attempts int, initialDelay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	delay := initialDelay
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !(logging.IsRateLimit(err) || logging.IsServerError(err)) {
			return err
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	return err
}
