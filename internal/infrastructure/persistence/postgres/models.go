package postgres

import (
	"time"
)

// OrderModel mirrors the orders table.
type OrderModel struct {
	OrderID          string
	DonorID          string
	TotalAmountKurus int64
	Currency         string
	IsRecurring      bool
	Status           string
	FlaggedForReview bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineModel mirrors the donation_lines table. Shareholders are stored as a
// JSONB document on the line row; they have no standalone lifecycle.
type LineModel struct {
	ID              string
	OrderID         string
	ProjectID       int64
	AmountKurus     int64
	IsSacrifice     bool
	ShareCount      int
	SharePriceKurus int64
	Shareholders    []byte
	Message         string
	IsAnonymous     bool
	Status          string
	CreatedAt       time.Time
}

// SessionModel mirrors the payment_sessions table, keyed 1:1 to an order.
// The outcome is a JSONB document written once when the session closes.
type SessionModel struct {
	OrderID            string
	Gateway            string
	MAC                string
	State              string
	CreatedAt          time.Time
	CallbackReceivedAt *time.Time
	Outcome            []byte
}
