package redisad

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"hotel_booking/internal/domain"
)

const (
	idemPrefix  = "idem:"
	idemPending = "pending"
	idemDone    = "done:"
)

// Idempotency claims keys with SET NX so only one replica runs a keyed request.
type Idempotency struct{ c *redis.Client }

func NewIdempotency(c *redis.Client) *Idempotency { return &Idempotency{c: c} }

func (s *Idempotency) Claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	k := idemPrefix + key
	ok, err := s.c.SetNX(ctx, k, idemPending, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("%w: idempotency claim: %v", domain.ErrUnavailable, err)
	}
	if ok {
		return "", true, nil
	}
	v, err := s.c.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET; try once more
		ok, err = s.c.SetNX(ctx, k, idemPending, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("%w: idempotency claim: %v", domain.ErrUnavailable, err)
		}
		if ok {
			return "", true, nil
		}
		return "", false, domain.ErrInFlight
	case err != nil:
		return "", false, fmt.Errorf("%w: idempotency lookup: %v", domain.ErrUnavailable, err)
	}
	if id, done := strings.CutPrefix(v, idemDone); done {
		return id, false, nil
	}
	return "", false, fmt.Errorf("request %q still in progress: %w", key, domain.ErrInFlight)
}

func (s *Idempotency) Complete(ctx context.Context, key, resultID string, ttl time.Duration) error {
	return s.c.Set(ctx, idemPrefix+key, idemDone+resultID, ttl).Err()
}

func (s *Idempotency) Release(ctx context.Context, key string) error {
	return s.c.Del(ctx, idemPrefix+key).Err()
}
