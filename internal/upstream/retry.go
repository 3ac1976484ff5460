package upstream

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy controls how throttled upstream calls are retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the backoff before the retry that follows the given 1-based
// attempt: min(base * 2^(attempt-1), max). Non-decreasing and hard-capped.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retrier runs upstream operations, retrying only on throttling.
type Retrier struct {
	policy RetryPolicy
	log    zerolog.Logger
}

// NewRetrier creates a retrier. MaxAttempts below 1 is clamped to 1.
func NewRetrier(policy RetryPolicy, log zerolog.Logger) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Retrier{
		policy: policy,
		log:    log.With().Str("component", "retrier").Logger(),
	}
}

// Do runs fn up to MaxAttempts times. Only throttling errors are retried;
// anything else returns immediately. When attempts are exhausted the last
// throttle error is wrapped as an UpstreamError - no silent suppression.
func (r *Retrier) Do(ctx context.Context, label string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsThrottled(err) {
			return err
		}

		lastErr = err
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt)
		r.log.Warn().
			Str("op", label).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Upstream throttled, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &UpstreamError{Op: label, Err: lastErr}
}
