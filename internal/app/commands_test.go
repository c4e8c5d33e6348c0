package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/storage/memory"
)

func TestCreateHotel_DefaultsAndValidation(t *testing.T) {
	st := memory.New()
	cache := &fakeCache{}
	c := app.NewCatalogService(st, cache, testOpts())
	ctx := context.Background()

	id, err := c.CreateHotel(ctx, domain.HotelInput{
		Hotel: domain.Hotel{Name: " Grand Plaza ", Location: "New York", Price: 199, Images: []string{"a.jpg", "b.jpg"}},
		Rooms: []domain.RoomInput{{Room: domain.Room{Type: "Deluxe", Capacity: 2, Units: 3}}},
	})
	require.NoError(t, err)

	h, err := st.GetHotel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Grand Plaza", h.Name)
	assert.Equal(t, "a.jpg", h.Image)
	require.Len(t, h.Rooms, 1)
	assert.NotEmpty(t, h.Rooms[0].ID)
	assert.Equal(t, 6, h.Rooms[0].Available)
	assert.Equal(t, fixedNow, h.CreatedAt)
	assert.Contains(t, cache.dels, "hotel:"+id)

	_, err = c.CreateHotel(ctx, domain.HotelInput{Hotel: domain.Hotel{Name: "No price", Location: "Somewhere"}})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "price", ve.Field)

	over := 3
	_, err = c.CreateHotel(ctx, domain.HotelInput{
		Hotel: domain.Hotel{Name: "Over", Location: "X", Price: 1},
		Rooms: []domain.RoomInput{{Room: domain.Room{Type: "Twin", Capacity: 2, Units: 1}, Available: &over}},
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "rooms.available", ve.Field)
}

func TestCreateHotel_ExplicitZeroAvailabilityIsSoldOut(t *testing.T) {
	st := memory.New()
	c := app.NewCatalogService(st, nil, testOpts())
	ctx := context.Background()

	zero, two := 0, 2
	id, err := c.CreateHotel(ctx, domain.HotelInput{
		Hotel: domain.Hotel{Name: "Closed Wing", Location: "Rome", Price: 90},
		Rooms: []domain.RoomInput{
			{Room: domain.Room{ID: "sold", Type: "Twin", Capacity: 2, Units: 2}, Available: &zero},
			{Room: domain.Room{ID: "part", Type: "Twin", Capacity: 2, Units: 2}, Available: &two},
			{Room: domain.Room{ID: "full", Type: "Twin", Capacity: 2, Units: 2}},
		},
	})
	require.NoError(t, err)

	h, err := st.GetHotel(ctx, id)
	require.NoError(t, err)
	require.Len(t, h.Rooms, 3)
	assert.Equal(t, 0, h.Rooms[0].Available)
	assert.Equal(t, 2, h.Rooms[1].Available)
	assert.Equal(t, 4, h.Rooms[2].Available)
	assert.ErrorIs(t, st.ReserveRoom(ctx, id, "sold", 1), domain.ErrInsufficientAvailability)
}

func TestIngestRecord_ExplicitZeroAvailabilityIsSoldOut(t *testing.T) {
	st := memory.New()
	c := app.NewCatalogService(st, nil, testOpts())
	ctx := context.Background()

	id, err := c.IngestRecord(ctx, map[string]any{
		"name": "Off Season Lodge", "city": "Zermatt", "price": 310.0,
		"rooms": []any{
			map[string]any{"type": "Chalet", "capacity": 4.0, "units": 1.0, "availability": 0.0},
			map[string]any{"type": "Loft", "capacity": 2.0, "units": 1.0},
		},
	})
	require.NoError(t, err)

	h, err := st.GetHotel(ctx, id)
	require.NoError(t, err)
	require.Len(t, h.Rooms, 2)
	assert.Equal(t, 0, h.Rooms[0].Available)
	assert.Equal(t, 2, h.Rooms[1].Available)
}

func TestIngestRecord_MapsAliasesAndKeepsCountersOnReimport(t *testing.T) {
	st := memory.New()
	c := app.NewCatalogService(st, nil, testOpts())
	ctx := context.Background()

	rec := map[string]any{
		"hotel_name":      "Seaside Resort",
		"address":         map[string]any{"city": "Miami Beach"},
		"price_per_night": "249,50",
		"stars":           4.7,
		"photos":          []any{map[string]any{"url": "https://img/1.jpg"}, "https://img/2.jpg"},
		"tags":            "Pool, Spa",
		"room_types": []any{
			map[string]any{"name": "Suite", "max_guests": 3.0, "quantity": 2.0},
		},
	}

	id, err := c.IngestRecord(ctx, rec)
	require.NoError(t, err)

	h, err := st.GetHotel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Seaside Resort", h.Name)
	assert.Equal(t, "Miami Beach", h.Location)
	assert.InDelta(t, 249.5, h.Price, 0.001)
	assert.Equal(t, []string{"Pool", "Spa"}, h.Amenities)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, h.Images)
	assert.Equal(t, "https://img/1.jpg", h.Image)
	require.Len(t, h.Rooms, 1)
	assert.Equal(t, 6, h.Rooms[0].Available)

	require.NoError(t, st.ReserveRoom(ctx, id, h.Rooms[0].ID, 4))

	again, err := c.IngestRecord(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	h, err = st.GetHotel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Rooms[0].Available)
}

func TestIngestRecord_RejectsIncompleteRecords(t *testing.T) {
	c := app.NewCatalogService(memory.New(), nil, testOpts())
	_, err := c.IngestRecord(context.Background(), map[string]any{"name": "Nowhere Inn"})
	assert.True(t, domain.IsValidation(err))
}
