package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeConfig            = "CONFIG_ERROR"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeRouting           = "ROUTING_ERROR"
	ErrCodeSignature         = "SIGNATURE_ERROR"
	ErrCodeGatewayRejected   = "GATEWAY_REJECTED"
	ErrCodeReplayDetected    = "REPLAY_DETECTED"
	ErrCodeDuplicateOrder    = "DUPLICATE_ORDER"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrReplayDetected    = errors.New("callback replay for terminal session")
	ErrSignatureMissing  = errors.New("MAC signature is missing")
	ErrBinNotFound       = errors.New("BIN code not registered")
	ErrOrderNotFound     = errors.New("order not found")
	ErrSessionNotFound   = errors.New("payment session not found")
)

// NewValidationError rejects malformed input with field-level detail before
// any external call is made.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// NewConfigError reports a missing gateway credential/secret at startup.
func NewConfigError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeConfig,
		Message: "gateway configuration is incomplete",
		Err:     err,
	}
}

// NewRoutingError reports that the bank directory could not answer a
// routing decision.
func NewRoutingError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeRouting,
		Message: "bank directory lookup failed",
		Err:     err,
	}
}

// NewSignatureError reports a failed MAC computation. A redirect is never
// produced with a missing or garbage signature.
func NewSignatureError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeSignature,
		Message: "MAC computation failed",
		Err:     err,
	}
}

// NewGatewayRejectedError wraps a REJECTED outcome for audit logging. The
// donor-facing message never exposes raw bank codes.
func NewGatewayRejectedError(outcome *Outcome) *DomainError {
	return &DomainError{
		Code: ErrCodeGatewayRejected,
		Message: fmt.Sprintf("payment rejected: %s (status=%s response=%s)",
			outcome.Reason, outcome.AuthStrengthCode, outcome.ResponseCode),
	}
}

// IsValidationError reports whether err carries the validation code.
func IsValidationError(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == ErrCodeValidation
}
