package handlers

import (
	"errors"
	"net/http"

	"github.com/bagisva/vpos-gateway/internal/checkout"
	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/interfaces/rest"
)

// CallbackResponse acknowledges a bank callback. The bank only needs the
// status code; the body is for the redirect landing page.
type CallbackResponse struct {
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
	Replayed bool   `json:"replayed,omitempty"`
}

func (h *Handlers) PrimaryCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, domain.GatewayPrimary)
}

func (h *Handlers) AlternateCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, domain.GatewayAlternate)
}

// handleCallback accepts the bank's form-encoded POST. Banks retry
// delivery, so a replayed callback answers 200 with the originally stored
// outcome; anything else would keep the bank retrying forever.
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request, kind domain.GatewayKind) {
	if err := r.ParseForm(); err != nil {
		rest.WriteError(w, domain.NewValidationError("body", "malformed callback form"), h.logger)
		return
	}

	fields := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}

	receipt, err := h.callbackService.Process(r.Context(), kind, fields)
	if err != nil {
		if errors.Is(err, domain.ErrReplayDetected) && receipt != nil {
			writeReceipt(w, receipt)
			return
		}
		rest.WriteError(w, err, h.logger)
		return
	}

	writeReceipt(w, receipt)
}

func writeReceipt(w http.ResponseWriter, receipt *checkout.CallbackReceipt) {
	resp := CallbackResponse{
		OrderID:  receipt.Order.OrderID,
		Status:   string(receipt.Order.Status),
		Verified: receipt.Outcome.Verified,
		Replayed: receipt.Replayed,
	}
	if !receipt.Outcome.Verified {
		resp.Reason = string(receipt.Outcome.Reason)
	}
	rest.WriteJSON(w, http.StatusOK, resp)
}
