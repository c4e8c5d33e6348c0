package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// Options tunes store access and caching for all services.
type Options struct {
	StoreTimeout   time.Duration
	Retry          RetryPolicy
	CacheTTL       time.Duration
	IdempotencyTTL time.Duration
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 3 * time.Second
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = DefaultRetryPolicy()
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 15 * time.Minute
	}
	if o.IdempotencyTTL <= 0 {
		o.IdempotencyTTL = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func hotelCacheKey(id string) string { return "hotel:" + id }

func invalidateHotel(ctx context.Context, cache domain.Cache, id string) {
	if cache == nil {
		return
	}
	if err := cache.Del(ctx, hotelCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("hotel_id", id).Msg("cache invalidation failed")
	}
}

// publish is best effort: the booking is already committed when it runs.
func publish(ctx context.Context, pub domain.EventPublisher, e domain.BookingEvent) {
	if pub == nil {
		return
	}
	err := pub.Publish(ctx, e)
	observability.ObserveEvent(e.Type, err)
	if err != nil {
		log.Warn().Err(err).Str("event", e.Type).Str("booking_id", e.BookingID).Msg("publish failed")
	}
}

// idempotent runs fn at most once per key. A completed key replays its result id,
// an in-flight one yields ErrInFlight. A failed run frees the key again, except when
// the failing write may have landed: then the key stays claimed until its TTL.
func idempotent(ctx context.Context, store domain.IdempotencyStore, key string, ttl time.Duration, fn func() (string, error)) (string, error) {
	if store == nil || key == "" {
		return fn()
	}
	prev, claimed, err := store.Claim(ctx, key, ttl)
	if err != nil {
		return "", err
	}
	if !claimed {
		log.Info().Str("idempotency_key", key).Str("result_id", prev).Msg("idempotent replay")
		return prev, nil
	}
	id, err := fn()
	if err != nil {
		if errors.Is(err, errOutcomeUnknown) {
			log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency key kept after write with unknown outcome")
			return "", err
		}
		if rerr := store.Release(context.WithoutCancel(ctx), key); rerr != nil {
			log.Warn().Err(rerr).Str("idempotency_key", key).Msg("idempotency release failed")
		}
		return "", err
	}
	if cerr := store.Complete(context.WithoutCancel(ctx), key, id, ttl); cerr != nil {
		log.Warn().Err(cerr).Str("idempotency_key", key).Msg("idempotency complete failed")
	}
	return id, nil
}

// errOutcomeUnknown marks a failed insert that may still have been applied.
var errOutcomeUnknown = errors.New("write outcome unknown")

// outcomeUnknown reports a write cut off by a deadline or cancellation.
func outcomeUnknown(err error) bool {
	return errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// outcome labels a service result for the outcome counters.
func outcome(err error, ok string) string {
	var ve *domain.ValidationError
	switch {
	case err == nil:
		return ok
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientAvailability):
		return "insufficient"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	}
	return "error"
}
