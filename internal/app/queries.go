package app

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"

	"hotel_booking/internal/domain"
)

type QueryService struct {
	store domain.Store
	cache domain.Cache
	group singleflight.Group
	guard storeGuard
	opts  Options
}

func NewQueryService(st domain.Store, c domain.Cache, opts Options) *QueryService {
	opts = opts.withDefaults()
	return &QueryService{store: st, cache: c, guard: newStoreGuard(opts.StoreTimeout, opts.Retry), opts: opts}
}

// GetHotel is cache-aside; concurrent misses for one id share a single store read.
func (s *QueryService) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	key := hotelCacheKey(id)
	var h domain.Hotel
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &h); ok {
			return h, nil
		}
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var out domain.Hotel
		err := s.guard.read(ctx, "get_hotel", func(ctx context.Context) error {
			var e error
			out, e = s.store.GetHotel(ctx, id)
			return e
		})
		if err != nil {
			return domain.Hotel{}, err
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, key, out, int(s.opts.CacheTTL.Seconds()))
		}
		return out, nil
	})
	if err != nil {
		return domain.Hotel{}, err
	}
	return copyHotel(v.(domain.Hotel)), nil
}

func (s *QueryService) SearchHotels(ctx context.Context, q domain.HotelsQuery) ([]domain.Hotel, error) {
	if q.Guests < 0 {
		return nil, domain.Invalid("guests", "must be at least 1")
	}
	if q.Limit < 0 || q.Limit > 100 {
		return nil, domain.Invalid("limit", "must be between 1 and 100")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, domain.Invalid("minPrice", "must not exceed maxPrice")
	}
	var out []domain.Hotel
	err := s.guard.read(ctx, "list_hotels", func(ctx context.Context) error {
		var e error
		out, e = s.store.ListHotels(ctx, q)
		return e
	})
	if out == nil && err == nil {
		out = []domain.Hotel{}
	}
	return out, err
}

func (s *QueryService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	var b domain.Booking
	err := s.guard.read(ctx, "get_booking", func(ctx context.Context) error {
		var e error
		b, e = s.store.GetBooking(ctx, id)
		return e
	})
	return b, err
}

// ListBookingsForUser returns the user's bookings, newest first.
func (s *QueryService) ListBookingsForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Invalid("userId", "is required")
	}
	var out []domain.Booking
	err := s.guard.read(ctx, "list_bookings", func(ctx context.Context) error {
		var e error
		out, e = s.store.ListBookingsByUser(ctx, userID)
		return e
	})
	if out == nil && err == nil {
		out = []domain.Booking{}
	}
	return out, err
}

func (s *QueryService) GetPaymentForBooking(ctx context.Context, bookingID string) (domain.Payment, error) {
	if strings.TrimSpace(bookingID) == "" {
		return domain.Payment{}, domain.Invalid("bookingId", "is required")
	}
	var p domain.Payment
	err := s.guard.read(ctx, "get_payment", func(ctx context.Context) error {
		var e error
		p, e = s.store.GetPaymentByBooking(ctx, bookingID)
		return e
	})
	return p, err
}

// Ping reports store health for /healthz.
func (s *QueryService) Ping(ctx context.Context) error {
	return s.guard.once(ctx, s.store.Ping)
}

// copyHotel keeps callers sharing a singleflight result from aliasing slices.
func copyHotel(h domain.Hotel) domain.Hotel {
	out := h
	out.Rooms = append([]domain.Room(nil), h.Rooms...)
	out.Reviews = append([]domain.Review(nil), h.Reviews...)
	out.Images = append([]string(nil), h.Images...)
	out.Amenities = append([]string(nil), h.Amenities...)
	return out
}
