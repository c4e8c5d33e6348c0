package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// RetryPolicy defines bounded exponential backoff for store calls.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}
}

// NextDelay returns the pause before the given retry (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 50 * time.Millisecond
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}
	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

// storeGuard runs every store round trip under its own deadline and retries the
// failures that are safe to repeat.
type storeGuard struct {
	timeout time.Duration
	retry   RetryPolicy
}

func newStoreGuard(timeout time.Duration, retry RetryPolicy) storeGuard {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return storeGuard{timeout: timeout, retry: retry}
}

// read retries on ErrUnavailable and ErrTimeout.
func (g storeGuard) read(ctx context.Context, op string, fn func(context.Context) error) error {
	return g.run(ctx, op, func(err error) bool {
		return errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrTimeout)
	}, fn)
}

// write retries only on ErrUnavailable: a timed-out write may have been applied.
func (g storeGuard) write(ctx context.Context, op string, fn func(context.Context) error) error {
	return g.run(ctx, op, func(err error) bool {
		return errors.Is(err, domain.ErrUnavailable)
	}, fn)
}

func (g storeGuard) run(ctx context.Context, op string, retryable func(error) bool, fn func(context.Context) error) error {
	start := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		err = g.once(ctx, fn)
		if err == nil || !retryable(err) || attempt >= g.retry.MaxAttempts {
			break
		}
		delay := g.retry.NextDelay(attempt)
		log.Debug().Str("op", op).Int("attempt", attempt).Dur("backoff", delay).Err(err).Msg("store call retry")
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			observability.ObserveStore(op, "cancelled", time.Since(start))
			return ctx.Err()
		case <-t.C:
		}
	}
	observability.ObserveStore(op, storeResult(err), time.Since(start))
	return err
}

func (g storeGuard) once(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	err := fn(cctx)
	if err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

func storeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientAvailability), errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	}
	return "error"
}
