package domain

import (
	"context"
	"io"
	"time"
)

type InventoryStore interface {
	// Write paths
	UpsertHotel(ctx context.Context, h Hotel) error
	// ReserveRoom atomically takes guests slots from the room counter only if the result
	// stays non-negative. ErrNotFound when the room does not belong to the hotel,
	// ErrInsufficientAvailability when the counter is too low.
	ReserveRoom(ctx context.Context, hotelID, roomID string, guests int) error
	// ReleaseRoom gives slots back, never exceeding Capacity*Units.
	ReleaseRoom(ctx context.Context, hotelID, roomID string, guests int) error

	// Read paths
	GetHotel(ctx context.Context, id string) (Hotel, error)
	ListHotels(ctx context.Context, q HotelsQuery) ([]Hotel, error)
}

type BookingStore interface {
	CreateBooking(ctx context.Context, b Booking) error
	// ConfirmBooking moves a pending/pending booking to confirmed/completed and attaches
	// paymentID in one conditional write. ErrAlreadyProcessed when the guard fails.
	ConfirmBooking(ctx context.Context, bookingID, paymentID string, at time.Time) error
	// RevertConfirmation undoes ConfirmBooking for the given payment only.
	RevertConfirmation(ctx context.Context, bookingID, paymentID string) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, p Payment) error
	GetPaymentByBooking(ctx context.Context, bookingID string) (Payment, error)
}

// Store is what every backend (memory, mysql, mongo) provides.
type Store interface {
	InventoryStore
	BookingStore
	PaymentStore
	Ping(ctx context.Context) error
	Close() error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// IdempotencyStore remembers the outcome of client-keyed mutations.
type IdempotencyStore interface {
	// Claim reserves key. It returns the stored result id when the key already
	// completed, or ErrInFlight while another request still holds it.
	Claim(ctx context.Context, key string, ttl time.Duration) (resultID string, claimed bool, err error)
	Complete(ctx context.Context, key, resultID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, e BookingEvent) error
}

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (url string, err error)
}

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
)

type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"bookingId"`
	HotelID    string    `json:"hotelId"`
	RoomID     string    `json:"roomId"`
	UserID     string    `json:"userId,omitempty"`
	Guests     int       `json:"guests"`
	Status     string    `json:"status"`
	PaymentID  string    `json:"paymentId,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
