package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"EquityLens/internal/domain/models"
	"EquityLens/internal/service/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(waits *[]time.Duration, opts ...Option) *Supervisor {
	base := []Option{
		WithSleeper(func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		}),
	}
	return New(append(base, opts...)...)
}

func rateLimitedErr() error {
	return provider.Wrap("polygon", models.CategoryPrices, 429, provider.ErrRateLimited)
}

func TestDoRateLimitedThenSuccess(t *testing.T) {
	var waits []time.Duration
	s := newTestSupervisor(&waits)

	calls := 0
	out, err := Do(context.Background(), s, func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", rateLimitedErr()
		}
		return "payload", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "payload", out)
	assert.Equal(t, 3, calls)
	// Two backoff waits of increasing duration before the third attempt.
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, waits)
}

func TestDoRateLimitExhaustion(t *testing.T) {
	var waits []time.Duration
	s := newTestSupervisor(&waits)

	calls := 0
	_, err := Do(context.Background(), s, func(context.Context) (string, error) {
		calls++
		return "", rateLimitedErr()
	})

	require.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}, waits)
}

func TestDoUnavailableFixedDelay(t *testing.T) {
	var waits []time.Duration
	s := newTestSupervisor(&waits)

	calls := 0
	_, err := Do(context.Background(), s, func(context.Context) (int, error) {
		calls++
		return 0, provider.Wrap("fred", models.CategoryEconomic, 503, provider.ErrUnavailable)
	})

	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, waits)
}

func TestDoFatalClassesNoRetry(t *testing.T) {
	for _, class := range []error{provider.ErrUnauthorized, provider.ErrNotFound} {
		var waits []time.Duration
		s := newTestSupervisor(&waits)

		calls := 0
		_, err := Do(context.Background(), s, func(context.Context) (string, error) {
			calls++
			return "", provider.Wrap("edgar", models.CategoryProfile, 0, class)
		})

		require.ErrorIs(t, err, class)
		assert.Equal(t, 1, calls)
		assert.Empty(t, waits)
	}
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	s := New(WithSleeper(func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}))

	_, err := Do(context.Background(), s, func(context.Context) (string, error) {
		return "", rateLimitedErr()
	})
	require.True(t, errors.Is(err, context.Canceled))
}
