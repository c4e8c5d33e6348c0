package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/storage/memory"
)

// ---- fakes ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent
}

func (p *fakePublisher) Publish(_ context.Context, e domain.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ---- fixtures ----

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func testOpts() app.Options {
	return app.Options{
		StoreTimeout: time.Second,
		Retry:        app.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		Now:          func() time.Time { return fixedNow },
	}
}

func seedHotel(t *testing.T, s *memory.Store, rooms ...domain.Room) {
	t.Helper()
	require.NoError(t, s.UpsertHotel(context.Background(), domain.Hotel{
		ID: "h1", Name: "Grand Plaza", Location: "New York, USA", Price: 199, Rating: 4.5, Rooms: rooms,
	}))
}

func available(t *testing.T, s *memory.Store, roomID string) int {
	t.Helper()
	h, err := s.GetHotel(context.Background(), "h1")
	require.NoError(t, err)
	r, ok := h.Room(roomID)
	require.True(t, ok, "room %s missing", roomID)
	return r.Available
}

func bookingRequest(roomID string, guests int) domain.BookingRequest {
	return domain.BookingRequest{
		UserID:   "u1",
		HotelID:  "h1",
		RoomID:   roomID,
		CheckIn:  "2026-11-01",
		CheckOut: "2026-11-04",
		Guests:   guests,
		GuestInfo: domain.GuestInfo{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+44 20 0000",
		},
		PaymentInfo: domain.PaymentInput{
			Method: "credit-card", CardNumber: "4242 4242 4242 4242", CardName: "Ada Lovelace", Expiry: "12/29", CVV: "123",
		},
		BillingAddress: domain.BillingAddress{Address: "1 Main St", City: "London", State: "LDN", Zip: "N1"},
	}
}

type fixture struct {
	store    *memory.Store
	cache    *fakeCache
	events   *fakePublisher
	bookings *app.BookingService
	payments *app.PaymentService
	queries  *app.QueryService
}

func newFixture(t *testing.T, rooms ...domain.Room) fixture {
	t.Helper()
	st := memory.New()
	seedHotel(t, st, rooms...)
	f := fixture{store: st, cache: &fakeCache{}, events: &fakePublisher{}}
	idem := memory.NewIdempotency()
	f.bookings = app.NewBookingService(st, f.cache, f.events, idem, testOpts())
	f.payments = app.NewPaymentService(st, f.events, idem, testOpts())
	f.queries = app.NewQueryService(st, f.cache, testOpts())
	return f
}
