package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

type bookingStore interface {
	domain.InventoryStore
	domain.BookingStore
}

type BookingService struct {
	store  bookingStore
	cache  domain.Cache
	events domain.EventPublisher
	idem   domain.IdempotencyStore
	guard  storeGuard
	opts   Options
}

func NewBookingService(st bookingStore, cache domain.Cache, events domain.EventPublisher, idem domain.IdempotencyStore, opts Options) *BookingService {
	opts = opts.withDefaults()
	return &BookingService{
		store:  st,
		cache:  cache,
		events: events,
		idem:   idem,
		guard:  newStoreGuard(opts.StoreTimeout, opts.Retry),
		opts:   opts,
	}
}

// CreateBooking validates the request, reserves guest slots with one conditional
// store update and records a pending booking. A failed insert gives the slots back
// unless its outcome is unknown.
func (s *BookingService) CreateBooking(ctx context.Context, req domain.BookingRequest, idemKey string) (string, error) {
	key := ""
	if idemKey != "" {
		key = "booking:" + idemKey
	}
	id, err := idempotent(ctx, s.idem, key, s.opts.IdempotencyTTL, func() (string, error) {
		return s.createBooking(ctx, req)
	})
	observability.ObserveBooking(outcome(err, "created"))
	return id, err
}

func (s *BookingService) createBooking(ctx context.Context, req domain.BookingRequest) (string, error) {
	stay, err := req.Validate()
	if err != nil {
		return "", err
	}

	var hotel domain.Hotel
	err = s.guard.read(ctx, "get_hotel", func(ctx context.Context) error {
		var e error
		hotel, e = s.store.GetHotel(ctx, req.HotelID)
		return e
	})
	if err != nil {
		return "", fmt.Errorf("hotel %s: %w", req.HotelID, err)
	}

	room, err := s.reserve(ctx, hotel, req.RoomID, req.Guests)
	if err != nil {
		return "", err
	}

	now := s.opts.Now().UTC()
	nights := stay.Nights()
	b := domain.Booking{
		ID:             uuid.NewString(),
		UserID:         strings.TrimSpace(req.UserID),
		HotelID:        hotel.ID,
		RoomID:         room.ID,
		CheckIn:        stay.CheckIn,
		CheckOut:       stay.CheckOut,
		Guests:         req.Guests,
		Nights:         nights,
		TotalPrice:     hotel.NightlyRate(room.ID) * float64(nights),
		GuestInfo:      req.GuestInfo,
		PaymentSummary: req.PaymentInfo.Mask(),
		BillingAddress: req.BillingAddress,
		Status:         domain.BookingPending,
		PaymentStatus:  domain.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.guard.write(ctx, "create_booking", func(ctx context.Context) error {
		return s.store.CreateBooking(ctx, b)
	})
	if err != nil {
		if outcomeUnknown(err) {
			log.Error().Err(err).Str("booking_id", b.ID).Str("hotel_id", hotel.ID).Str("room_id", room.ID).
				Int("guests", req.Guests).Msg("booking insert outcome unknown; reservation kept")
			return "", fmt.Errorf("create booking: %w: %w", errOutcomeUnknown, err)
		}
		s.release(ctx, hotel.ID, room.ID, req.Guests)
		return "", fmt.Errorf("create booking: %w", err)
	}

	invalidateHotel(ctx, s.cache, hotel.ID)
	publish(ctx, s.events, domain.BookingEvent{
		Type: domain.EventBookingCreated, BookingID: b.ID, HotelID: b.HotelID, RoomID: b.RoomID,
		UserID: b.UserID, Guests: b.Guests, Status: b.Status, Amount: b.TotalPrice, OccurredAt: now,
	})
	log.Info().Str("booking_id", b.ID).Str("hotel_id", b.HotelID).Str("room_id", b.RoomID).
		Int("guests", b.Guests).Msg("booking created")
	return b.ID, nil
}

// reserve takes guests slots from roomID, or from the first room of the hotel that
// can still hold them when roomID is empty. The hotel snapshot only picks candidates
// and shapes error messages; the conditional decrement decides.
func (s *BookingService) reserve(ctx context.Context, hotel domain.Hotel, roomID string, guests int) (domain.Room, error) {
	candidates := hotel.Rooms
	if roomID != "" {
		room, ok := hotel.Room(roomID)
		if !ok {
			return domain.Room{}, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
		}
		if room.Available < guests {
			return domain.Room{}, fmt.Errorf("room %s has %d left: %w", roomID, room.Available, domain.ErrInsufficientAvailability)
		}
		candidates = []domain.Room{room}
	}

	for _, room := range candidates {
		if room.Available < guests {
			continue
		}
		err := s.guard.write(ctx, "reserve_room", func(ctx context.Context) error {
			return s.store.ReserveRoom(ctx, hotel.ID, room.ID, guests)
		})
		switch {
		case err == nil:
			return room, nil
		case roomID != "":
			return domain.Room{}, fmt.Errorf("room %s: %w", room.ID, err)
		case errors.Is(err, domain.ErrInsufficientAvailability), errors.Is(err, domain.ErrNotFound):
			continue
		default:
			return domain.Room{}, fmt.Errorf("room %s: %w", room.ID, err)
		}
	}
	return domain.Room{}, fmt.Errorf("hotel %s has no room for %d guests: %w", hotel.ID, guests, domain.ErrInsufficientAvailability)
}

func (s *BookingService) release(ctx context.Context, hotelID, roomID string, guests int) {
	err := s.guard.write(context.WithoutCancel(ctx), "release_room", func(ctx context.Context) error {
		return s.store.ReleaseRoom(ctx, hotelID, roomID, guests)
	})
	if err != nil {
		log.Error().Err(err).Str("hotel_id", hotelID).Str("room_id", roomID).Int("guests", guests).
			Msg("reservation release failed")
	}
}
