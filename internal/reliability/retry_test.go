package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconadvisor/falcon/internal/domain"
)

func testConfig() RetryConfig {
	return RetryConfig{Attempts: 3, BaseWait: time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testConfig(), zerolog.Nop(), "submit_order", func() error {
		calls++
		if calls < 3 {
			return domain.NewBrokerTransientError("submit_order", "503", errors.New("unavailable"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := domain.NewBrokerPermanentError("submit_order", "422", errors.New("invalid order"))

	err := Retry(context.Background(), testConfig(), zerolog.Nop(), "submit_order", func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testConfig(), zerolog.Nop(), "get_positions", func() error {
		calls++
		return domain.NewBrokerTransientError("get_positions", "500", errors.New("boom"))
	})

	assert.True(t, domain.IsBrokerTransient(err))
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, RetryConfig{Attempts: 5, BaseWait: time.Hour}, zerolog.Nop(), "submit_order", func() error {
		calls++
		return domain.NewBrokerTransientError("submit_order", "503", errors.New("unavailable"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
