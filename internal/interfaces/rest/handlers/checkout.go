package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bagisva/vpos-gateway/internal/checkout"
	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
	"github.com/bagisva/vpos-gateway/internal/interfaces/rest"
)

// CheckoutResponse is the donor-facing view of a checkout. It carries the
// redirect form the frontend auto-submits to the bank. Card data never
// appears in the response.
type CheckoutResponse struct {
	OrderID          string                `json:"order_id"`
	Status           string                `json:"status"`
	TotalAmountKurus int64                 `json:"total_amount_kurus"`
	Currency         string                `json:"currency"`
	Gateway          string                `json:"gateway"`
	RoutingReason    string                `json:"routing_reason"`
	Redirect         *gateway.RedirectForm `json:"redirect"`
	DuplicateOf      []string              `json:"duplicate_of,omitempty"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var cmd checkout.CheckoutCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		rest.WriteError(w, domain.NewValidationError("body", "malformed request body"), h.logger)
		return
	}

	result, err := h.checkoutService.Checkout(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:          result.Order.OrderID,
		Status:           string(result.Order.Status),
		TotalAmountKurus: result.Order.TotalAmountKurus,
		Currency:         result.Order.Currency,
		Gateway:          string(result.Decision.Gateway),
		RoutingReason:    result.Decision.Reason,
		Redirect:         result.Redirect,
		DuplicateOf:      result.DuplicateOf,
	})
}
