package database

import (
	"context"
	"fmt"
	"time"

	"talent-match-workers/internal/common/logger"
)

// Retry runs operation until it succeeds or attempts run out, doubling the
// delay after each failure. It stops early when ctx is done.
func Retry(ctx context.Context, log logger.Logger, name string, attempts int, delay time.Duration, operation func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = operation(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Warn(name+" failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxAttempts": attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}
