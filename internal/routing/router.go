// Package routing decides which virtual POS handles a transaction based on
// the card's BIN prefix.
package routing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bagisva/vpos-gateway/internal/domain"
)

// BinDirectory is the read-only catalog mapping a BIN prefix to its bank.
// Lookups must be side-effect-free.
type BinDirectory interface {
	LookupBank(ctx context.Context, binCode string) (*domain.Bank, error)
}

// Decision is the routing outcome, including the human-readable reason
// kept for the audit trail.
type Decision struct {
	Gateway domain.GatewayKind
	Bank    *domain.Bank
	Reason  string
}

type Router struct {
	directory BinDirectory
	logger    *slog.Logger
}

func NewRouter(directory BinDirectory, logger *slog.Logger) *Router {
	return &Router{
		directory: directory,
		logger:    logger,
	}
}

// Route selects the gateway for one transaction.
//
// Recurring payments always use PRIMARY; only the primary gateway supports
// registered recurring billing. Otherwise the first 6 digits of the card
// are looked up: an active, alternate-eligible bank routes to ALTERNATE,
// everything else routes to PRIMARY, an unmapped BIN included. A directory
// infrastructure failure falls back to PRIMARY only after an explicit audit
// log entry, never silently.
func (r *Router) Route(ctx context.Context, cardNumber string, isRecurring bool) (Decision, error) {
	if isRecurring {
		return Decision{
			Gateway: domain.GatewayPrimary,
			Reason:  "recurring payments always use the primary gateway",
		}, nil
	}

	bin, err := ExtractBIN(cardNumber)
	if err != nil {
		return Decision{}, err
	}

	bank, err := r.directory.LookupBank(ctx, bin)
	if err != nil {
		if errors.Is(err, domain.ErrBinNotFound) {
			return Decision{
				Gateway: domain.GatewayPrimary,
				Reason:  "BIN not registered, using the default gateway",
			}, nil
		}

		routingErr := domain.NewRoutingError(err)
		r.logger.Warn("bank directory unreachable, falling back to primary gateway",
			"bin", bin,
			"error", err,
		)
		return Decision{
			Gateway: domain.GatewayPrimary,
			Reason:  "bank directory unreachable, explicit fallback to the default gateway: " + routingErr.Error(),
		}, nil
	}

	if !bank.IsActive {
		return Decision{
			Gateway: domain.GatewayPrimary,
			Bank:    bank,
			Reason:  bank.Name + " is inactive, using the default gateway",
		}, nil
	}

	if bank.AlternateGatewayEligible {
		return Decision{
			Gateway: domain.GatewayAlternate,
			Bank:    bank,
			Reason:  bank.Name + " is routed through the alternate gateway",
		}, nil
	}

	return Decision{
		Gateway: domain.GatewayPrimary,
		Bank:    bank,
		Reason:  bank.Name + " is routed through the default gateway",
	}, nil
}

// ExtractBIN returns the 6-digit BIN prefix of a card number.
func ExtractBIN(cardNumber string) (string, error) {
	cleaned := strings.ReplaceAll(cardNumber, " ", "")
	if len(cleaned) < 6 {
		return "", domain.NewValidationError("card_number", "card number requires at least 6 digits")
	}
	return cleaned[:6], nil
}
