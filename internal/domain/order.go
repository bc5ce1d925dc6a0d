// Package domain encodes the donation order, payment session and outcome
// models for the VPOS gateway.
package domain

import (
	"fmt"
	"slices"
	"time"
)

// OrderStatus represents the current state of a donation order in its lifecycle
type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusAuthenticating OrderStatus = "AUTHENTICATING"
	StatusSucceeded      OrderStatus = "SUCCEEDED"
	StatusFailed         OrderStatus = "FAILED"
)

// Shareholder is one named share of a sacrifice donation. Identity
// (name + phone) may repeat across share numbers; one person can hold
// several shares.
type Shareholder struct {
	ShareNumber int    `json:"share_number"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address,omitempty"`
	Note        string `json:"note,omitempty"`
}

// DonationLine is a single cart line inside an order. Lines are immutable
// after creation except for status mirrored from the order.
type DonationLine struct {
	ID              string
	OrderID         string
	ProjectID       int64
	AmountKurus     int64
	IsSacrifice     bool
	ShareCount      int
	SharePriceKurus int64
	Shareholders    []Shareholder
	Message         string
	IsAnonymous     bool
	Status          OrderStatus
	CreatedAt       time.Time
}

// Validate checks the line-level invariants. Shareholders may be nil
// (collected after payment), but when present their share numbers must
// form the exact set 1..ShareCount.
func (l *DonationLine) Validate() error {
	if l.AmountKurus <= 0 {
		return NewValidationError("amount", "amount must be positive")
	}
	if !l.IsSacrifice {
		return nil
	}
	if l.ShareCount < 1 {
		return NewValidationError("share_count", "sacrifice donation requires at least one share")
	}
	if l.AmountKurus != int64(l.ShareCount)*l.SharePriceKurus {
		return NewValidationError("amount",
			fmt.Sprintf("amount %d does not equal share_count %d * share_price %d",
				l.AmountKurus, l.ShareCount, l.SharePriceKurus))
	}
	if l.Shareholders == nil {
		return nil
	}
	if len(l.Shareholders) != l.ShareCount {
		return NewValidationError("shareholders",
			fmt.Sprintf("expected %d shareholders, got %d", l.ShareCount, len(l.Shareholders)))
	}
	seen := make(map[int]bool, l.ShareCount)
	for _, sh := range l.Shareholders {
		if sh.ShareNumber < 1 || sh.ShareNumber > l.ShareCount {
			return NewValidationError("shareholders",
				fmt.Sprintf("share number %d outside 1..%d", sh.ShareNumber, l.ShareCount))
		}
		if seen[sh.ShareNumber] {
			return NewValidationError("shareholders",
				fmt.Sprintf("duplicate share number %d", sh.ShareNumber))
		}
		if sh.FullName == "" {
			return NewValidationError("shareholders",
				fmt.Sprintf("share %d is missing a full name", sh.ShareNumber))
		}
		seen[sh.ShareNumber] = true
	}
	return nil
}

// Order is the payable unit built from one cart submission. Card data is
// never stored on the order; it only exists transiently during signing.
type Order struct {
	OrderID          string
	DonorID          string
	TotalAmountKurus int64
	Currency         string
	IsRecurring      bool
	Status           OrderStatus
	Lines            []*DonationLine

	FlaggedForReview bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder builds a PENDING order from validated lines. The total is the
// exact integer sum of line amounts; no floating point touches the money
// path.
func NewOrder(orderID, donorID, currency string, isRecurring bool, lines []*DonationLine) (*Order, error) {
	if orderID == "" {
		return nil, NewValidationError("order_id", "order ID is required")
	}
	if donorID == "" {
		return nil, NewValidationError("donor_id", "donor ID is required")
	}
	if len(lines) == 0 {
		return nil, NewValidationError("lines", "order requires at least one donation line")
	}

	var total int64
	now := time.Now()
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, err
		}
		line.OrderID = orderID
		line.Status = StatusPending
		line.CreatedAt = now
		total += line.AmountKurus
	}

	return &Order{
		OrderID:          orderID,
		DonorID:          donorID,
		TotalAmountKurus: total,
		Currency:         currency,
		IsRecurring:      isRecurring,
		Status:           StatusPending,
		Lines:            lines,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// MarkAuthenticating records that a redirect form was issued for the order.
func (o *Order) MarkAuthenticating() error {
	return o.transition(StatusAuthenticating)
}

// Succeed closes the order after a VERIFIED callback outcome.
func (o *Order) Succeed() error {
	return o.transition(StatusSucceeded)
}

// Fail closes the order after a REJECTED callback outcome.
func (o *Order) Fail() error {
	return o.transition(StatusFailed)
}

func (o *Order) transition(target OrderStatus) error {
	if err := o.canTransitionTo(target); err != nil {
		return err
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	for _, line := range o.Lines {
		line.Status = target
	}
	return nil
}

func (o *Order) canTransitionTo(target OrderStatus) error {
	switch o.Status {
	case StatusPending:
		return o.allow(target, StatusAuthenticating, StatusFailed)
	case StatusAuthenticating:
		return o.allow(target, StatusSucceeded, StatusFailed)
	}
	return ErrInvalidTransition
}

func (o *Order) allow(target OrderStatus, allowed ...OrderStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return ErrInvalidTransition
}

func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

// ReconstituteOrder loads an order from storage without re-running
// creation-time validation.
func ReconstituteOrder(
	orderID, donorID string,
	totalAmountKurus int64,
	currency string,
	isRecurring bool,
	status OrderStatus,
	lines []*DonationLine,
	flaggedForReview bool,
	createdAt, updatedAt time.Time,
) *Order {
	return &Order{
		OrderID:          orderID,
		DonorID:          donorID,
		TotalAmountKurus: totalAmountKurus,
		Currency:         currency,
		IsRecurring:      isRecurring,
		Status:           status,
		Lines:            lines,
		FlaggedForReview: flaggedForReview,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}
