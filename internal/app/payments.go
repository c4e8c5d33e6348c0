package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

type paymentStore interface {
	domain.BookingStore
	domain.PaymentStore
}

type PaymentService struct {
	store  paymentStore
	events domain.EventPublisher
	idem   domain.IdempotencyStore
	guard  storeGuard
	opts   Options
}

func NewPaymentService(st paymentStore, events domain.EventPublisher, idem domain.IdempotencyStore, opts Options) *PaymentService {
	opts = opts.withDefaults()
	return &PaymentService{
		store:  st,
		events: events,
		idem:   idem,
		guard:  newStoreGuard(opts.StoreTimeout, opts.Retry),
		opts:   opts,
	}
}

// CreatePayment confirms a pending booking and records its payment. Only the caller
// that wins the conditional confirm inserts a payment.
func (s *PaymentService) CreatePayment(ctx context.Context, req domain.PaymentRequest, idemKey string) (string, error) {
	key := ""
	if idemKey != "" {
		key = "payment:" + idemKey
	}
	id, err := idempotent(ctx, s.idem, key, s.opts.IdempotencyTTL, func() (string, error) {
		return s.createPayment(ctx, req)
	})
	observability.ObservePayment(outcome(err, "completed"))
	return id, err
}

func (s *PaymentService) createPayment(ctx context.Context, req domain.PaymentRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	var b domain.Booking
	err := s.guard.read(ctx, "get_booking", func(ctx context.Context) error {
		var e error
		b, e = s.store.GetBooking(ctx, req.BookingID)
		return e
	})
	if err != nil {
		return "", fmt.Errorf("booking %s: %w", req.BookingID, err)
	}
	if b.Status != domain.BookingPending || b.PaymentStatus != domain.PaymentPending {
		return "", domain.ErrAlreadyProcessed
	}

	now := s.opts.Now().UTC()
	p := domain.Payment{
		ID:            uuid.NewString(),
		BookingID:     b.ID,
		Amount:        req.Amount,
		Method:        strings.TrimSpace(req.Method),
		Status:        domain.PaymentCompleted,
		TransactionID: "txn_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		CreatedAt:     now,
	}

	err = s.guard.write(ctx, "confirm_booking", func(ctx context.Context) error {
		return s.store.ConfirmBooking(ctx, b.ID, p.ID, now)
	})
	if err != nil {
		return "", err
	}

	err = s.guard.write(ctx, "create_payment", func(ctx context.Context) error {
		return s.store.CreatePayment(ctx, p)
	})
	if err != nil {
		if outcomeUnknown(err) {
			log.Error().Err(err).Str("booking_id", b.ID).Str("payment_id", p.ID).
				Msg("payment insert outcome unknown; confirmation kept")
			return "", fmt.Errorf("record payment: %w: %w", errOutcomeUnknown, err)
		}
		s.revert(ctx, b.ID, p.ID)
		return "", fmt.Errorf("record payment: %w", err)
	}

	publish(ctx, s.events, domain.BookingEvent{
		Type: domain.EventBookingConfirmed, BookingID: b.ID, HotelID: b.HotelID, RoomID: b.RoomID,
		UserID: b.UserID, Guests: b.Guests, Status: domain.BookingConfirmed, PaymentID: p.ID,
		Amount: p.Amount, OccurredAt: now,
	})
	log.Info().Str("booking_id", b.ID).Str("payment_id", p.ID).Float64("amount", p.Amount).Msg("payment completed")
	return p.ID, nil
}

func (s *PaymentService) revert(ctx context.Context, bookingID, paymentID string) {
	err := s.guard.write(context.WithoutCancel(ctx), "revert_confirmation", func(ctx context.Context) error {
		return s.store.RevertConfirmation(ctx, bookingID, paymentID)
	})
	if err != nil {
		log.Error().Err(err).Str("booking_id", bookingID).Str("payment_id", paymentID).
			Msg("booking confirmation revert failed")
	}
}
