package domain

// RejectReason is the fixed taxonomy a gateway callback is mapped onto.
// Raw bank codes travel alongside for audit but are never shown to donors.
type RejectReason string

const (
	// ReasonNotEnrolled - cardholder or issuing bank is not enrolled in 3D Secure.
	ReasonNotEnrolled RejectReason = "NOT_ENROLLED"
	// ReasonAttempted - only attempted/half authentication; not accepted as
	// proof of cardholder presence even when the transaction itself succeeded.
	ReasonAttempted RejectReason = "ATTEMPTED"
	// ReasonAuthFailed - interactive authentication failed outright.
	ReasonAuthFailed RejectReason = "AUTH_FAILED"
	// ReasonUnknownCard - the card could not be identified by the directory server.
	ReasonUnknownCard RejectReason = "UNKNOWN_CARD"
	// ReasonGatewayError - the gateway or directory reported a system error.
	ReasonGatewayError RejectReason = "GATEWAY_ERROR"
	// ReasonDeclined - full authentication but the transaction-result code
	// indicated failure.
	ReasonDeclined RejectReason = "DECLINED"
)

// Outcome is the canonical result derived from a gateway's raw callback
// codes. Verified is true only when authentication strength indicated full
// interactive verification and the transaction-result code was success.
type Outcome struct {
	Verified bool
	Reason   RejectReason

	// Raw gateway codes, retained for audit.
	AuthStrengthCode string
	ResponseCode     string
	ResponseMessage  string

	AuthCode      string
	TransactionID string
}

// VerifiedOutcome builds a successful outcome.
func VerifiedOutcome(authStrength, responseCode, authCode, transactionID string) *Outcome {
	return &Outcome{
		Verified:         true,
		AuthStrengthCode: authStrength,
		ResponseCode:     responseCode,
		AuthCode:         authCode,
		TransactionID:    transactionID,
	}
}

// RejectedOutcome builds a failed outcome carrying the raw codes.
func RejectedOutcome(reason RejectReason, authStrength, responseCode, message string) *Outcome {
	return &Outcome{
		Verified:         false,
		Reason:           reason,
		AuthStrengthCode: authStrength,
		ResponseCode:     responseCode,
		ResponseMessage:  message,
	}
}
