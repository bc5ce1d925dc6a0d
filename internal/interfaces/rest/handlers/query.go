package handlers

import (
	"net/http"
	"time"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/interfaces/rest"
)

// OrderResponse is the donor-facing view of an order for the return page.
type OrderResponse struct {
	OrderID          string         `json:"order_id"`
	DonorID          string         `json:"donor_id"`
	Status           string         `json:"status"`
	TotalAmountKurus int64          `json:"total_amount_kurus"`
	Currency         string         `json:"currency"`
	IsRecurring      bool           `json:"is_recurring"`
	Lines            []LineResponse `json:"lines"`
	CreatedAt        time.Time      `json:"created_at"`
}

type LineResponse struct {
	ID              string               `json:"id"`
	ProjectID       int64                `json:"project_id"`
	AmountKurus     int64                `json:"amount_kurus"`
	IsSacrifice     bool                 `json:"is_sacrifice"`
	ShareCount      int                  `json:"share_count,omitempty"`
	SharePriceKurus int64                `json:"share_price_kurus,omitempty"`
	Shareholders    []domain.Shareholder `json:"shareholders,omitempty"`
	Message         string               `json:"message,omitempty"`
	IsAnonymous     bool                 `json:"is_anonymous"`
	Status          string               `json:"status"`
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	if orderID == "" {
		rest.WriteError(w, domain.NewValidationError("order_id", "order ID is required"), h.logger)
		return
	}

	order, err := h.checkoutService.GetOrder(r.Context(), orderID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order *domain.Order) OrderResponse {
	lines := make([]LineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, LineResponse{
			ID:              line.ID,
			ProjectID:       line.ProjectID,
			AmountKurus:     line.AmountKurus,
			IsSacrifice:     line.IsSacrifice,
			ShareCount:      line.ShareCount,
			SharePriceKurus: line.SharePriceKurus,
			Shareholders:    line.Shareholders,
			Message:         line.Message,
			IsAnonymous:     line.IsAnonymous,
			Status:          string(line.Status),
		})
	}
	return OrderResponse{
		OrderID:          order.OrderID,
		DonorID:          order.DonorID,
		Status:           string(order.Status),
		TotalAmountKurus: order.TotalAmountKurus,
		Currency:         order.Currency,
		IsRecurring:      order.IsRecurring,
		Lines:            lines,
		CreatedAt:        order.CreatedAt,
	}
}
