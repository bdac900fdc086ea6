package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking rows live in Postgres rather than MongoDB: they are relational
// (user x tour), carry a uniqueness constraint on the Stripe session, and
// back the payment audit trail.
type Booking struct {
	ID              uuid.UUID `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UserID          string    `json:"user_id"`
	TourID          string    `json:"tour_id"`
	Price           float64   `json:"price"`
	Paid            bool      `json:"paid"`
	StripeSessionID string    `json:"-"`
}
