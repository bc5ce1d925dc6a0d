// Package gateway contains the virtual POS adapters and the MAC signer.
// Each adapter owns one bank's wire contract: the redirect field set, the
// MAC field sequence, and the callback code taxonomy.
package gateway

import (
	"context"
	"strconv"

	"github.com/bagisva/vpos-gateway/internal/domain"
)

// Card carries cardholder data for the duration of a single BuildRedirect
// call and the MAC computation. It must never be written to durable
// storage or to any log.
type Card struct {
	Number string
	CVV    string
	Expiry string // YYMM
	Holder string
}

// RedirectForm is the signed payload the client posts to the bank's hosted
// 3D-Secure page.
type RedirectForm struct {
	Action string            `json:"action"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`

	// MAC is the signature embedded in Fields, surfaced separately so the
	// payment session can retain it.
	MAC string `json:"-"`
}

// CallbackResult is the parsed, validated view of a gateway callback.
type CallbackResult struct {
	OrderID string
	Outcome *domain.Outcome
}

// InquiryResult is the gateway's answer to an out-of-band order inquiry.
type InquiryResult struct {
	OrderID      string
	ResponseCode string
	Approved     bool
	RawStatus    string
}

// Adapter is the variant-polymorphic gateway interface. Adding a third
// gateway means adding one implementation, not branching existing code.
type Adapter interface {
	Kind() domain.GatewayKind

	// BuildRedirect assembles the gateway's signed field set for the
	// interactive authentication redirect.
	BuildRedirect(order *domain.Order, card Card) (*RedirectForm, error)

	// InterpretCallback verifies callback authenticity and maps the raw
	// status/response code pair onto the canonical Outcome taxonomy.
	InterpretCallback(fields map[string]string) (*CallbackResult, error)

	// Out-of-band reconciliation calls. Failures are surfaced, never
	// retried by the core.
	Inquire(ctx context.Context, orderID string) (*InquiryResult, error)
	Void(ctx context.Context, transactionID string, amountKurus int64) error
	Refund(ctx context.Context, transactionID string, amountKurus int64) error
}

// amountString encodes a minor-unit amount for the wire: integer kurus,
// no decimal point anywhere in the money path.
func amountString(amountKurus int64) string {
	return strconv.FormatInt(amountKurus, 10)
}
