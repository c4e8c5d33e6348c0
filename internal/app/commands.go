package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
)

type CatalogService struct {
	store domain.InventoryStore
	cache domain.Cache
	guard storeGuard
	opts  Options
}

func NewCatalogService(st domain.InventoryStore, cache domain.Cache, opts Options) *CatalogService {
	opts = opts.withDefaults()
	return &CatalogService{store: st, cache: cache, guard: newStoreGuard(opts.StoreTimeout, opts.Retry), opts: opts}
}

// CreateHotel assigns ids, fills room counter defaults and stores the hotel.
func (s *CatalogService) CreateHotel(ctx context.Context, in domain.HotelInput) (string, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	h := normalizeHotel(in)
	if err := h.Validate(); err != nil {
		return "", err
	}
	now := s.opts.Now().UTC()
	h.CreatedAt, h.UpdatedAt = now, now
	if err := s.upsert(ctx, h); err != nil {
		return "", err
	}
	log.Info().Str("hotel_id", h.ID).Str("name", h.Name).Int("rooms", len(h.Rooms)).Msg("hotel created")
	return h.ID, nil
}

// IngestRecord maps one loosely shaped catalog record and upserts it. Records without
// an id get a stable one derived from name and location so re-imports update in place.
func (s *CatalogService) IngestRecord(ctx context.Context, rec map[string]any) (string, error) {
	h := normalizeHotel(mapHotelRecord(rec))
	if err := h.Validate(); err != nil {
		return "", fmt.Errorf("record %q: %w", h.Name, err)
	}
	if err := s.upsert(ctx, h); err != nil {
		return "", fmt.Errorf("upsert %s: %w", h.ID, err)
	}
	return h.ID, nil
}

func (s *CatalogService) upsert(ctx context.Context, h domain.Hotel) error {
	err := s.guard.write(ctx, "upsert_hotel", func(ctx context.Context) error {
		return s.store.UpsertHotel(ctx, h)
	})
	if err != nil {
		return err
	}
	invalidateHotel(ctx, s.cache, h.ID)
	return nil
}

func normalizeHotel(in domain.HotelInput) domain.Hotel {
	h := in.Hotel
	h.Name = strings.TrimSpace(h.Name)
	h.Location = strings.TrimSpace(h.Location)
	if h.Image == "" && len(h.Images) > 0 {
		h.Image = h.Images[0]
	}
	rooms := make([]domain.Room, len(in.Rooms))
	for i, ri := range in.Rooms {
		r := ri.Room
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Units == 0 {
			r.Units = 1
		}
		if ri.Available != nil {
			r.Available = *ri.Available
		} else {
			r.Available = r.MaxAvailable()
		}
		r.HotelID = h.ID
		rooms[i] = r
	}
	h.Rooms = rooms
	return h
}
