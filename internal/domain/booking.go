package domain

import (
	"net/mail"
	"strings"
	"time"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

type Booking struct {
	ID             string         `json:"id" bson:"_id"`
	UserID         string         `json:"userId,omitempty" bson:"userId"`
	HotelID        string         `json:"hotelId" bson:"hotelId"`
	RoomID         string         `json:"roomId" bson:"roomId"`
	CheckIn        time.Time      `json:"checkIn" bson:"checkIn"`
	CheckOut       time.Time      `json:"checkOut" bson:"checkOut"`
	Guests         int            `json:"guests" bson:"guests"`
	Nights         int            `json:"nights" bson:"nights"`
	TotalPrice     float64        `json:"totalPrice" bson:"totalPrice"`
	GuestInfo      GuestInfo      `json:"guestInfo" bson:"guestInfo"`
	PaymentSummary PaymentSummary `json:"paymentInfo" bson:"paymentInfo"`
	BillingAddress BillingAddress `json:"billingAddress" bson:"billingAddress"`
	Status         string         `json:"status" bson:"status"`
	PaymentStatus  string         `json:"paymentStatus" bson:"paymentStatus"`
	PaymentID      string         `json:"paymentId,omitempty" bson:"paymentId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type GuestInfo struct {
	FirstName       string `json:"firstName" bson:"firstName"`
	LastName        string `json:"lastName" bson:"lastName"`
	Email           string `json:"email" bson:"email"`
	Phone           string `json:"phone" bson:"phone"`
	SpecialRequests string `json:"specialRequests,omitempty" bson:"specialRequests,omitempty"`
}

// PaymentSummary is the only card data that is ever persisted.
type PaymentSummary struct {
	Method         string `json:"method" bson:"method"`
	CardLast4      string `json:"cardLast4,omitempty" bson:"cardLast4,omitempty"`
	CardholderName string `json:"cardName,omitempty" bson:"cardName,omitempty"`
}

type BillingAddress struct {
	Country string `json:"country,omitempty" bson:"country,omitempty"`
	Address string `json:"address" bson:"address"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Zip     string `json:"zip" bson:"zip"`
}

// PaymentInput carries what the client submitted; it never reaches a store.
type PaymentInput struct {
	Method     string `json:"method"`
	CardNumber string `json:"cardNumber,omitempty"`
	CardName   string `json:"cardName,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVV        string `json:"cvv,omitempty"`
}

type BookingRequest struct {
	UserID         string         `json:"userId,omitempty"`
	HotelID        string         `json:"hotelId"`
	RoomID         string         `json:"roomId,omitempty"`
	CheckIn        string         `json:"checkIn"`
	CheckOut       string         `json:"checkOut"`
	Guests         int            `json:"guests"`
	GuestInfo      GuestInfo      `json:"guestInfo"`
	PaymentInfo    PaymentInput   `json:"paymentInfo"`
	BillingAddress BillingAddress `json:"billingAddress"`
}

// Stay is a validated date range.
type Stay struct {
	CheckIn, CheckOut time.Time
}

func (s Stay) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// Validate applies the booking rules in order and returns the first violation.
func (r BookingRequest) Validate() (Stay, error) {
	var stay Stay
	switch {
	case blank(r.HotelID):
		return stay, Invalid("hotelId", "is required")
	case blank(r.CheckIn):
		return stay, Invalid("checkIn", "is required")
	case blank(r.CheckOut):
		return stay, Invalid("checkOut", "is required")
	case r.Guests == 0:
		return stay, Invalid("guests", "is required")
	case r.Guests < 0:
		return stay, Invalid("guests", "must be at least 1")
	}
	in, err := ParseDate(r.CheckIn)
	if err != nil {
		return stay, Invalid("checkIn", "must be YYYY-MM-DD or RFC3339")
	}
	out, err := ParseDate(r.CheckOut)
	if err != nil {
		return stay, Invalid("checkOut", "must be YYYY-MM-DD or RFC3339")
	}
	if !out.After(in) {
		return stay, Invalid("checkOut", "must be after checkIn")
	}
	stay = Stay{CheckIn: in, CheckOut: out}

	g := r.GuestInfo
	switch {
	case blank(g.FirstName):
		return stay, Invalid("guestInfo.firstName", "is required")
	case blank(g.LastName):
		return stay, Invalid("guestInfo.lastName", "is required")
	case blank(g.Email):
		return stay, Invalid("guestInfo.email", "is required")
	case blank(g.Phone):
		return stay, Invalid("guestInfo.phone", "is required")
	}
	if _, err := mail.ParseAddress(g.Email); err != nil {
		return stay, Invalid("guestInfo.email", "must be a valid address")
	}

	if blank(r.PaymentInfo.Method) {
		return stay, Invalid("paymentInfo.method", "is required")
	}

	b := r.BillingAddress
	switch {
	case blank(b.Address):
		return stay, Invalid("billingAddress.address", "is required")
	case blank(b.City):
		return stay, Invalid("billingAddress.city", "is required")
	case blank(b.State):
		return stay, Invalid("billingAddress.state", "is required")
	case blank(b.Zip):
		return stay, Invalid("billingAddress.zip", "is required")
	}
	return stay, nil
}

// ParseDate accepts a calendar date or a full RFC3339 timestamp; both are normalised
// to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Mask reduces the submitted card data to its last four digits and holder name.
func (p PaymentInput) Mask() PaymentSummary {
	digits := make([]byte, 0, len(p.CardNumber))
	for i := 0; i < len(p.CardNumber); i++ {
		if c := p.CardNumber[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	last4 := ""
	if len(digits) >= 4 {
		last4 = string(digits[len(digits)-4:])
	}
	return PaymentSummary{
		Method:         strings.TrimSpace(p.Method),
		CardLast4:      last4,
		CardholderName: strings.TrimSpace(p.CardName),
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
