package domain

import (
	"slices"
	"time"
)

// GatewayKind identifies which virtual POS handles a payment attempt.
type GatewayKind string

const (
	GatewayPrimary   GatewayKind = "PRIMARY"
	GatewayAlternate GatewayKind = "ALTERNATE"
)

// SessionState tracks a 3D-Secure payment attempt through its lifecycle.
type SessionState string

const (
	SessionInitiated        SessionState = "INITIATED"
	SessionRedirected       SessionState = "REDIRECTED"
	SessionCallbackReceived SessionState = "CALLBACK_RECEIVED"
	SessionVerified         SessionState = "VERIFIED"
	SessionRejected         SessionState = "REJECTED"
)

// PaymentSession is keyed 1:1 to an order by OrderID. It closes on the
// first valid callback; any later callback for the same order is a replay.
type PaymentSession struct {
	OrderID string
	Gateway GatewayKind
	MAC     string
	State   SessionState

	CreatedAt          time.Time
	CallbackReceivedAt *time.Time
	Outcome            *Outcome
}

// NewPaymentSession opens a session for the routed gateway. The MAC is the
// only artifact of the signing step that is ever retained.
func NewPaymentSession(orderID string, gateway GatewayKind, mac string) (*PaymentSession, error) {
	if orderID == "" {
		return nil, NewValidationError("order_id", "order ID is required")
	}
	if mac == "" {
		return nil, ErrSignatureMissing
	}
	return &PaymentSession{
		OrderID:   orderID,
		Gateway:   gateway,
		MAC:       mac,
		State:     SessionInitiated,
		CreatedAt: time.Now(),
	}, nil
}

// MarkRedirected records that the redirect form was handed to the client.
func (s *PaymentSession) MarkRedirected() error {
	return s.transition(SessionRedirected)
}

// ReceiveCallback records the arrival of the bank's asynchronous callback.
// A callback against a terminal session is a replay, not a transition.
func (s *PaymentSession) ReceiveCallback(at time.Time) error {
	if s.IsTerminal() {
		return ErrReplayDetected
	}
	if err := s.transition(SessionCallbackReceived); err != nil {
		return err
	}
	s.CallbackReceivedAt = &at
	return nil
}

// Close records the canonical outcome and moves the session to its terminal
// state. Exactly one terminal outcome is ever recorded per order.
func (s *PaymentSession) Close(outcome *Outcome) error {
	if s.IsTerminal() {
		return ErrReplayDetected
	}
	target := SessionRejected
	if outcome.Verified {
		target = SessionVerified
	}
	if err := s.transition(target); err != nil {
		return err
	}
	s.Outcome = outcome
	return nil
}

func (s *PaymentSession) transition(target SessionState) error {
	if err := s.canTransitionTo(target); err != nil {
		return err
	}
	s.State = target
	return nil
}

func (s *PaymentSession) canTransitionTo(target SessionState) error {
	switch s.State {
	case SessionInitiated:
		return s.allow(target, SessionRedirected)
	case SessionRedirected:
		return s.allow(target, SessionCallbackReceived)
	case SessionCallbackReceived:
		return s.allow(target, SessionVerified, SessionRejected)
	}
	return ErrInvalidTransition
}

func (s *PaymentSession) allow(target SessionState, allowed ...SessionState) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return ErrInvalidTransition
}

func (s *PaymentSession) IsTerminal() bool {
	switch s.State {
	case SessionVerified, SessionRejected:
		return true
	default:
		return false
	}
}

// ReconstituteSession loads a session from storage.
func ReconstituteSession(
	orderID string,
	gateway GatewayKind,
	mac string,
	state SessionState,
	createdAt time.Time,
	callbackReceivedAt *time.Time,
	outcome *Outcome,
) *PaymentSession {
	return &PaymentSession{
		OrderID:            orderID,
		Gateway:            gateway,
		MAC:                mac,
		State:              state,
		CreatedAt:          createdAt,
		CallbackReceivedAt: callbackReceivedAt,
		Outcome:            outcome,
	}
}
