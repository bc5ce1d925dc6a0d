// Package checkout consolidates a donation cart into one payable order and
// orchestrates the 3D-Secure payment attempt around it.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
	"github.com/bagisva/vpos-gateway/internal/routing"
)

// CheckoutResult is what one cart submission produces: the persisted order
// and the signed redirect form the client posts to the bank.
type CheckoutResult struct {
	Order    *domain.Order
	Redirect *gateway.RedirectForm
	Decision routing.Decision

	// DuplicateOf lists earlier still-pending orders that look like
	// resubmissions of this cart. Advisory only; checkout proceeds.
	DuplicateOf []string
}

type Service struct {
	orders   OrderRepository
	sessions SessionRepository
	projects ProjectDirectory
	router   *routing.Router
	adapters map[domain.GatewayKind]gateway.Adapter
	guard    *DuplicateGuard
	currency string
	logger   *slog.Logger
}

func NewService(
	orders OrderRepository,
	sessions SessionRepository,
	projects ProjectDirectory,
	router *routing.Router,
	adapters map[domain.GatewayKind]gateway.Adapter,
	guard *DuplicateGuard,
	currency string,
	logger *slog.Logger,
) *Service {
	return &Service{
		orders:   orders,
		sessions: sessions,
		projects: projects,
		router:   router,
		adapters: adapters,
		guard:    guard,
		currency: currency,
		logger:   logger,
	}
}

// Checkout validates the cart, builds one order covering every line,
// persists it atomically, routes the card to a gateway and returns the
// signed redirect form. Card data is used transiently for routing and
// signing; it is never stored.
func (s *Service) Checkout(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if len(cmd.Items) == 0 {
		return nil, domain.NewValidationError("items", "cart is empty")
	}

	orderID, err := newOrderID()
	if err != nil {
		return nil, fmt.Errorf("generate order id: %w", err)
	}

	lines := make([]*domain.DonationLine, 0, len(cmd.Items))
	for idx, item := range cmd.Items {
		if err := s.checkProject(ctx, item.ProjectID); err != nil {
			return nil, err
		}
		lineID, err := newOrderID()
		if err != nil {
			return nil, fmt.Errorf("generate line id for item %d: %w", idx, err)
		}
		lines = append(lines, item.toLine(lineID))
	}

	order, err := domain.NewOrder(orderID, cmd.DonorID, s.currency, cmd.IsRecurring, lines)
	if err != nil {
		return nil, err
	}

	duplicates, err := s.guard.Check(ctx, order)
	if err != nil {
		// Advisory check; a guard failure never blocks a checkout.
		s.logger.Warn("duplicate guard check failed", "order_id", orderID, "error", err)
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	decision, err := s.router.Route(ctx, cmd.Card.Number, cmd.IsRecurring)
	if err != nil {
		return nil, err
	}

	adapter, ok := s.adapters[decision.Gateway]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for gateway %s", decision.Gateway)
	}

	card := gateway.Card{
		Number: cmd.Card.Number,
		CVV:    cmd.Card.CVV,
		Expiry: cmd.Card.Expiry,
		Holder: cmd.Card.Holder,
	}

	form, err := adapter.BuildRedirect(order, card)
	if err != nil {
		return nil, err
	}

	session, err := domain.NewPaymentSession(orderID, decision.Gateway, form.MAC)
	if err != nil {
		return nil, err
	}
	if err := session.MarkRedirected(); err != nil {
		return nil, err
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("persist payment session: %w", err)
	}

	if err := order.MarkAuthenticating(); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.logger.Info("checkout redirect issued",
		"order_id", orderID,
		"gateway", decision.Gateway,
		"routing_reason", decision.Reason,
		"total_kurus", order.TotalAmountKurus,
		"lines", len(order.Lines),
		"recurring", order.IsRecurring,
	)

	return &CheckoutResult{
		Order:       order,
		Redirect:    form,
		Decision:    decision,
		DuplicateOf: duplicates,
	}, nil
}

// GetOrder retrieves an order for the return page.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.FindByOrderID(ctx, orderID)
}

func (s *Service) checkProject(ctx context.Context, projectID int64) error {
	exists, err := s.projects.ProjectExists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("project lookup: %w", err)
	}
	if !exists {
		return domain.NewValidationError("project_id",
			fmt.Sprintf("project %d does not exist", projectID))
	}
	return nil
}

// newOrderID generates a process-wide-unique, time-ordered token used as
// the gateway correlation key.
func newOrderID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
