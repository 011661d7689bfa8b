package retry

import (
	"context"
	"errors"
	"time"

	"EquityLens/internal/service/provider"
)

// Surfaced when the attempt budget is exhausted.
var (
	ErrRateLimitExceeded   = errors.New("retry: rate limit exceeded")
	ErrProviderUnavailable = errors.New("retry: provider unavailable")
)

// Supervisor wraps provider calls with bounded, failure-class-aware backoff.
// RateLimited waits grow linearly (base*attempt); Unavailable retries after a
// fixed short delay; Unauthorized and NotFound fail immediately. The attempt
// count is hard-bounded.
type Supervisor struct {
	maxAttempts      int
	rateLimitBase    time.Duration
	unavailableDelay time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
	onWait           func(d time.Duration)
}

// Option configures Supervisor.
type Option func(*Supervisor)

// WithMaxAttempts sets the attempt ceiling (minimum 1).
func WithMaxAttempts(n int) Option {
	return func(s *Supervisor) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the rate-limit base wait and the fixed unavailable delay.
func WithBackoff(rateLimitBase, unavailableDelay time.Duration) Option {
	return func(s *Supervisor) {
		s.rateLimitBase = rateLimitBase
		s.unavailableDelay = unavailableDelay
	}
}

// WithSleeper replaces the wait function; tests use this to observe the
// schedule without real waiting.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Supervisor) { s.sleep = fn }
}

// WithWaitObserver registers a callback invoked with each backoff duration.
func WithWaitObserver(fn func(d time.Duration)) Option {
	return func(s *Supervisor) { s.onWait = fn }
}

// New creates a Supervisor with the observed default schedule: four attempts,
// rate-limit waits of 5s/10s/15s, a 2s delay between unavailable retries.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		maxAttempts:      4,
		rateLimitBase:    5 * time.Second,
		unavailableDelay: 2 * time.Second,
		sleep:            sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do invokes call until it succeeds, fails fatally, or exhausts the attempt
// budget. An iterative loop with an explicit counter; no recursion.
func Do[T any](ctx context.Context, s *Supervisor, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !provider.Retryable(err) {
			return zero, err
		}
		if attempt == s.maxAttempts {
			break
		}

		var wait time.Duration
		if errors.Is(err, provider.ErrRateLimited) {
			wait = s.rateLimitBase * time.Duration(attempt)
		} else {
			wait = s.unavailableDelay
		}
		if s.onWait != nil {
			s.onWait(wait)
		}
		if err := s.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	if errors.Is(lastErr, provider.ErrRateLimited) {
		return zero, errors.Join(ErrRateLimitExceeded, lastErr)
	}
	return zero, errors.Join(ErrProviderUnavailable, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
