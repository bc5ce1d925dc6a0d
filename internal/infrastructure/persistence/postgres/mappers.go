package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/bagisva/vpos-gateway/internal/domain"
)

// toOrderModel maps a domain order (without lines) to its db row.
func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		OrderID:          o.OrderID,
		DonorID:          o.DonorID,
		TotalAmountKurus: o.TotalAmountKurus,
		Currency:         o.Currency,
		IsRecurring:      o.IsRecurring,
		Status:           string(o.Status),
		FlaggedForReview: o.FlaggedForReview,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func toLineModel(l *domain.DonationLine) (*LineModel, error) {
	var shareholders []byte
	if l.Shareholders != nil {
		data, err := json.Marshal(l.Shareholders)
		if err != nil {
			return nil, fmt.Errorf("marshal shareholders for line %s: %w", l.ID, err)
		}
		shareholders = data
	}
	return &LineModel{
		ID:              l.ID,
		OrderID:         l.OrderID,
		ProjectID:       l.ProjectID,
		AmountKurus:     l.AmountKurus,
		IsSacrifice:     l.IsSacrifice,
		ShareCount:      l.ShareCount,
		SharePriceKurus: l.SharePriceKurus,
		Shareholders:    shareholders,
		Message:         l.Message,
		IsAnonymous:     l.IsAnonymous,
		Status:          string(l.Status),
		CreatedAt:       l.CreatedAt,
	}, nil
}

func toDomainLine(m LineModel) (*domain.DonationLine, error) {
	var shareholders []domain.Shareholder
	if len(m.Shareholders) > 0 {
		if err := json.Unmarshal(m.Shareholders, &shareholders); err != nil {
			return nil, fmt.Errorf("unmarshal shareholders for line %s: %w", m.ID, err)
		}
	}
	return &domain.DonationLine{
		ID:              m.ID,
		OrderID:         m.OrderID,
		ProjectID:       m.ProjectID,
		AmountKurus:     m.AmountKurus,
		IsSacrifice:     m.IsSacrifice,
		ShareCount:      m.ShareCount,
		SharePriceKurus: m.SharePriceKurus,
		Shareholders:    shareholders,
		Message:         m.Message,
		IsAnonymous:     m.IsAnonymous,
		Status:          domain.OrderStatus(m.Status),
		CreatedAt:       m.CreatedAt,
	}, nil
}

func toDomainOrder(m OrderModel, lines []*domain.DonationLine) *domain.Order {
	return domain.ReconstituteOrder(
		m.OrderID,
		m.DonorID,
		m.TotalAmountKurus,
		m.Currency,
		m.IsRecurring,
		domain.OrderStatus(m.Status),
		lines,
		m.FlaggedForReview,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toSessionModel(s *domain.PaymentSession) (*SessionModel, error) {
	var outcome []byte
	if s.Outcome != nil {
		data, err := json.Marshal(s.Outcome)
		if err != nil {
			return nil, fmt.Errorf("marshal outcome for order %s: %w", s.OrderID, err)
		}
		outcome = data
	}
	return &SessionModel{
		OrderID:            s.OrderID,
		Gateway:            string(s.Gateway),
		MAC:                s.MAC,
		State:              string(s.State),
		CreatedAt:          s.CreatedAt,
		CallbackReceivedAt: s.CallbackReceivedAt,
		Outcome:            outcome,
	}, nil
}

func toDomainSession(m SessionModel) (*domain.PaymentSession, error) {
	var outcome *domain.Outcome
	if len(m.Outcome) > 0 {
		outcome = &domain.Outcome{}
		if err := json.Unmarshal(m.Outcome, outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome for order %s: %w", m.OrderID, err)
		}
	}
	return domain.ReconstituteSession(
		m.OrderID,
		domain.GatewayKind(m.Gateway),
		m.MAC,
		domain.SessionState(m.State),
		m.CreatedAt,
		m.CallbackReceivedAt,
		outcome,
	), nil
}
