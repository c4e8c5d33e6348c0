package domain

import (
	"strings"
	"time"
)

type Payment struct {
	ID            string    `json:"id" bson:"_id"`
	BookingID     string    `json:"bookingId" bson:"bookingId"`
	Amount        float64   `json:"amount" bson:"amount"`
	Method        string    `json:"paymentMethod" bson:"paymentMethod"`
	Status        string    `json:"status" bson:"status"`
	TransactionID string    `json:"transactionId" bson:"transactionId"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

type PaymentRequest struct {
	BookingID string  `json:"bookingId"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"paymentMethod"`
}

func (r PaymentRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.BookingID) == "":
		return Invalid("bookingId", "is required")
	case r.Amount == 0:
		return Invalid("amount", "is required")
	case r.Amount < 0:
		return Invalid("amount", "must be greater than zero")
	case strings.TrimSpace(r.Method) == "":
		return Invalid("paymentMethod", "is required")
	}
	return nil
}
