// Package retryx wraps outbound calls in capped exponential backoff with
// jitter. Retryability is decided by the apierrors taxonomy, and a
// provider-supplied Retry-After hint overrides the computed delay.
package retryx

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
)

// Policy controls the retry schedule.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultPolicy matches the provider's published guidance: up to 3 retries,
// 1s initial delay doubling to a 30s cap, jittered.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Delay computes the sleep before retry attempt k (1-based):
// min(MaxDelay, InitialDelay * Multiplier^(k-1)), scaled by a uniform
// jitter factor in [0.8, 1.2] when jitter is enabled.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	if p.Jitter {
		d *= 0.8 + 0.4*rand.Float64()
	}
	return time.Duration(d)
}

// DoValue runs op, retrying retryable failures per the policy. Non-retryable
// failures and exhaustion surface the last classified error unchanged.
// Retries consume no rate-limiter tokens; admission is a separate concern
// that gates edits, not transport attempts.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		env := apierrors.From(err)
		if !env.Retryable || attempt > p.MaxRetries {
			return zero, err
		}

		delay := p.Delay(attempt)
		if env.RetryAfter > 0 {
			delay = env.RetryAfter
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, apierrors.ClassifyTransport(err)
		}
	}
}

// Do is DoValue for operations without a result.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
