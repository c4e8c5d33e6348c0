// Package memory is a mutex-guarded store used for local runs and tests. Every
// counter mutation happens under the same lock as its precondition check.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hotel_booking/internal/domain"
)

type Store struct {
	mu       sync.Mutex
	hotels   map[string]domain.Hotel
	order    []string
	bookings map[string]domain.Booking
	payments map[string]domain.Payment // keyed by booking id

	// FailCreateBooking / FailCreatePayment let tests inject store faults.
	FailCreateBooking error
	FailCreatePayment error
}

func New() *Store {
	return &Store{
		hotels:   map[string]domain.Hotel{},
		bookings: map[string]domain.Booking{},
		payments: map[string]domain.Payment{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

/********** inventory **********/

func (s *Store) UpsertHotel(_ context.Context, h domain.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h = cloneHotel(h)
	prev, ok := s.hotels[h.ID]
	if !ok {
		s.order = append(s.order, h.ID)
	}
	// re-imports keep live counters, clamped to the new bound
	for i := range h.Rooms {
		if old, found := prev.Room(h.Rooms[i].ID); found {
			h.Rooms[i].Available = min(old.Available, h.Rooms[i].MaxAvailable())
		}
	}
	s.hotels[h.ID] = h
	return nil
}

func (s *Store) GetHotel(_ context.Context, id string) (domain.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return cloneHotel(h), nil
}

func (s *Store) ListHotels(_ context.Context, q domain.HotelsQuery) ([]domain.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Hotel
	for _, id := range s.order {
		h := s.hotels[id]
		if !q.Matches(h) {
			continue
		}
		out = append(out, cloneHotel(h))
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ReserveRoom(_ context.Context, hotelID, roomID string, guests int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, i, err := s.room(hotelID, roomID)
	if err != nil {
		return err
	}
	if h.Rooms[i].Available < guests {
		return domain.ErrInsufficientAvailability
	}
	h.Rooms[i].Available -= guests
	return nil
}

func (s *Store) ReleaseRoom(_ context.Context, hotelID, roomID string, guests int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, i, err := s.room(hotelID, roomID)
	if err != nil {
		return err
	}
	r := &h.Rooms[i]
	r.Available += guests
	if r.Available > r.MaxAvailable() {
		r.Available = r.MaxAvailable()
	}
	return nil
}

// room must be called with mu held; the returned hotel shares its Rooms slice with
// the stored value so index writes land in place.
func (s *Store) room(hotelID, roomID string) (domain.Hotel, int, error) {
	h, ok := s.hotels[hotelID]
	if !ok {
		return domain.Hotel{}, 0, domain.ErrNotFound
	}
	for i := range h.Rooms {
		if h.Rooms[i].ID == roomID {
			return h, i, nil
		}
	}
	return domain.Hotel{}, 0, domain.ErrNotFound
}

/********** bookings **********/

func (s *Store) CreateBooking(_ context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateBooking != nil {
		return s.FailCreateBooking
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) ConfirmBooking(_ context.Context, bookingID, paymentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.Status != domain.BookingPending || b.PaymentStatus != domain.PaymentPending {
		return domain.ErrAlreadyProcessed
	}
	b.Status = domain.BookingConfirmed
	b.PaymentStatus = domain.PaymentCompleted
	b.PaymentID = paymentID
	b.UpdatedAt = at
	s.bookings[bookingID] = b
	return nil
}

func (s *Store) RevertConfirmation(_ context.Context, bookingID, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.PaymentID != paymentID || b.Status != domain.BookingConfirmed {
		return domain.ErrNotFound
	}
	b.Status = domain.BookingPending
	b.PaymentStatus = domain.PaymentPending
	b.PaymentID = ""
	s.bookings[bookingID] = b
	return nil
}

func (s *Store) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookingsByUser(_ context.Context, userID string) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

/********** payments **********/

func (s *Store) CreatePayment(_ context.Context, p domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreatePayment != nil {
		return s.FailCreatePayment
	}
	if _, dup := s.payments[p.BookingID]; dup {
		return domain.ErrConflict
	}
	s.payments[p.BookingID] = p
	return nil
}

func (s *Store) GetPaymentByBooking(_ context.Context, bookingID string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[bookingID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

// PaymentCount is a test helper.
func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func cloneHotel(h domain.Hotel) domain.Hotel {
	out := h
	out.Rooms = append([]domain.Room(nil), h.Rooms...)
	out.Reviews = append([]domain.Review(nil), h.Reviews...)
	out.Images = append([]string(nil), h.Images...)
	out.Amenities = append([]string(nil), h.Amenities...)
	for i := range out.Rooms {
		out.Rooms[i].HotelID = h.ID
	}
	return out
}
