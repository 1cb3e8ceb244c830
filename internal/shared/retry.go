package shared

import (
	"fmt"
	"math/rand"
	"time"
)

// RetryWithBackoff retries fn with exponential backoff and jitter. Errors
// that are not retryable per IsRetryableError abort immediately.
func RetryWithBackoff(maxRetries int, initialDelay, maxDelay time.Duration, fn func() error) error {
	var lastErr error

	if maxRetries <= 1 {
		return fn()
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryableError(lastErr) {
			return lastErr
		}
		if attempt == maxRetries-1 {
			break
		}

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}
		// jitter of ±25% keeps parallel workers from retrying in lockstep
		jitter := time.Duration(rand.Int63n(int64(delay/2))) - delay/4
		time.Sleep(delay + jitter)
	}

	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}
