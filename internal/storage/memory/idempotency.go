package memory

import (
	"context"
	"sync"
	"time"

	"hotel_booking/internal/domain"
)

type idemEntry struct {
	resultID string
	done     bool
	expires  time.Time
}

// Idempotency is the single-process IdempotencyStore used when Redis is not configured.
type Idempotency struct {
	mu      sync.Mutex
	entries map[string]idemEntry
	now     func() time.Time
}

func NewIdempotency() *Idempotency {
	return &Idempotency{entries: map[string]idemEntry{}, now: time.Now}
}

func (s *Idempotency) Claim(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if !e.done {
			return "", false, domain.ErrInFlight
		}
		return e.resultID, false, nil
	}
	s.entries[key] = idemEntry{expires: now.Add(ttl)}
	return "", true, nil
}

func (s *Idempotency) Complete(_ context.Context, key, resultID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idemEntry{resultID: resultID, done: true, expires: s.now().Add(ttl)}
	return nil
}

func (s *Idempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
