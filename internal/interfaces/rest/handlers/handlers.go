// Package handlers wires the checkout and callback services to HTTP routes.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bagisva/vpos-gateway/internal/checkout"
)

type Handlers struct {
	checkoutService *checkout.Service
	callbackService *checkout.CallbackService
	logger          *slog.Logger
}

func NewHandlers(
	checkoutService *checkout.Service,
	callbackService *checkout.CallbackService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkoutService: checkoutService,
		callbackService: callbackService,
		logger:          logger,
	}
}

// RegisterRoutes mounts the API surface. The two callback routes are the
// banks' return targets; everything else is called by the donation
// frontend.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/checkout", h.Checkout)
	mux.HandleFunc("POST /api/v1/callbacks/primary", h.PrimaryCallback)
	mux.HandleFunc("POST /api/v1/callbacks/alternate", h.AlternateCallback)
	mux.HandleFunc("GET /api/v1/orders/{orderID}", h.GetOrder)
}
