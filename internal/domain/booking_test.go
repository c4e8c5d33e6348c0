package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_booking/internal/domain"
)

func validRequest() domain.BookingRequest {
	return domain.BookingRequest{
		HotelID:  "h1",
		CheckIn:  "2026-11-01",
		CheckOut: "2026-11-04",
		Guests:   2,
		GuestInfo: domain.GuestInfo{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+44 20 0000",
		},
		PaymentInfo:    domain.PaymentInput{Method: "credit-card", CardNumber: "4242 4242 4242 4242", CardName: "Ada L", CVV: "123"},
		BillingAddress: domain.BillingAddress{Address: "1 Main St", City: "London", State: "LDN", Zip: "N1"},
	}
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	return ve.Field
}

func TestBookingRequest_ValidateOK(t *testing.T) {
	stay, err := validRequest().Validate()
	require.NoError(t, err)
	assert.Equal(t, 3, stay.Nights())
}

func TestBookingRequest_ValidationOrder(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(r *domain.BookingRequest)
		field string
	}{
		{"missing hotel beats everything", func(r *domain.BookingRequest) { r.HotelID = ""; r.GuestInfo.Email = "" }, "hotelId"},
		{"guests zero", func(r *domain.BookingRequest) { r.Guests = 0 }, "guests"},
		{"checkout before checkin", func(r *domain.BookingRequest) { r.CheckOut = "2026-10-30" }, "checkOut"},
		{"same day", func(r *domain.BookingRequest) { r.CheckOut = r.CheckIn }, "checkOut"},
		{"bad date", func(r *domain.BookingRequest) { r.CheckIn = "tomorrow" }, "checkIn"},
		{"contact before payment", func(r *domain.BookingRequest) { r.GuestInfo.Phone = ""; r.PaymentInfo.Method = "" }, "guestInfo.phone"},
		{"bad email", func(r *domain.BookingRequest) { r.GuestInfo.Email = "nope" }, "guestInfo.email"},
		{"payment before billing", func(r *domain.BookingRequest) { r.PaymentInfo.Method = " "; r.BillingAddress.Zip = "" }, "paymentInfo.method"},
		{"billing zip", func(r *domain.BookingRequest) { r.BillingAddress.Zip = "" }, "billingAddress.zip"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequest()
			tc.edit(&r)
			_, err := r.Validate()
			assert.Equal(t, tc.field, fieldOf(t, err))
		})
	}
}

func TestPaymentInput_MaskKeepsLastFourOnly(t *testing.T) {
	in := domain.PaymentInput{Method: "credit-card", CardNumber: "4242-4242-4242-1234", CardName: " Ada L ", CVV: "999", Expiry: "12/29"}
	got := in.Mask()
	assert.Equal(t, domain.PaymentSummary{Method: "credit-card", CardLast4: "1234", CardholderName: "Ada L"}, got)

	short := domain.PaymentInput{Method: "paypal", CardNumber: "12"}.Mask()
	assert.Empty(t, short.CardLast4)
}

func TestParseDate_RFC3339Normalised(t *testing.T) {
	d, err := domain.ParseDate("2026-11-01T22:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-11-01T00:00:00Z", d.Format("2006-01-02T15:04:05Z07:00"))
}

func TestPaymentRequest_Validate(t *testing.T) {
	assert.NoError(t, domain.PaymentRequest{BookingID: "b", Amount: 10, Method: "card"}.Validate())
	assert.Equal(t, "bookingId", fieldOf(t, domain.PaymentRequest{Amount: 10, Method: "card"}.Validate()))
	assert.Equal(t, "amount", fieldOf(t, domain.PaymentRequest{BookingID: "b", Amount: -1, Method: "card"}.Validate()))
	assert.Equal(t, "paymentMethod", fieldOf(t, domain.PaymentRequest{BookingID: "b", Amount: 1}.Validate()))
}

func TestHotel_ValidateRoomBounds(t *testing.T) {
	h := domain.Hotel{Name: "Grand", Location: "NYC", Price: 199, Rooms: []domain.Room{
		{Type: "Deluxe", Capacity: 2, Units: 3, Available: 7},
	}}
	assert.Equal(t, "rooms.available", fieldOf(t, h.Validate()))

	h.Rooms[0].Available = 6
	assert.NoError(t, h.Validate())

	h.Price = 0
	assert.Equal(t, "price", fieldOf(t, h.Validate()))
}

func TestHotelsQuery_Matches(t *testing.T) {
	h := domain.Hotel{Location: "Miami Beach, USA", Price: 249, Rating: 4.7, Amenities: []string{"Spa", "Pool"},
		Rooms: []domain.Room{{Available: 2}, {Available: 4}}}
	lo, hi, rating := 200.0, 300.0, 4.5
	assert.True(t, domain.HotelsQuery{Location: "miami", MinPrice: &lo, MaxPrice: &hi, MinRating: &rating, Amenity: "spa", Guests: 4}.Matches(h))
	assert.False(t, domain.HotelsQuery{Guests: 5}.Matches(h))
	assert.False(t, domain.HotelsQuery{Amenity: "gym"}.Matches(h))
}

func TestAlreadyProcessedIsNotFound(t *testing.T) {
	assert.True(t, errors.Is(domain.ErrAlreadyProcessed, domain.ErrNotFound))
}
