// Package reliability provides retry helpers for flaky external calls.
package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
)

// RetryConfig bounds a retry loop.
type RetryConfig struct {
	Attempts int           // Total attempts including the first
	BaseWait time.Duration // Wait before the second attempt, doubled each retry
}

// DefaultRetryConfig matches the broker retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, BaseWait: 250 * time.Millisecond}
}

// Retry runs fn with bounded exponential backoff. Only transient broker
// errors are retried; any other error returns immediately. Context
// cancellation aborts the wait.
func Retry(ctx context.Context, cfg RetryConfig, log zerolog.Logger, op string, fn func() error) error {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	var err error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			waitTime := cfg.BaseWait * time.Duration(1<<uint(attempt-1)) // exponential backoff
			log.Warn().Err(err).
				Str("op", op).
				Int("attempt", attempt).
				Dur("wait", waitTime).
				Msg("Transient failure, retrying")

			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !domain.IsBrokerTransient(err) {
			return err
		}
	}

	return err
}
