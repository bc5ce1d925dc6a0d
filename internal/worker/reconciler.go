// Package worker runs the background reconciliation loop.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/bagisva/vpos-gateway/internal/checkout"
	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
)

// Reconciler periodically scans orders stuck in AUTHENTICATING past the
// session timeout. A stuck order means the donor was redirected but the
// bank's callback never arrived, or was lost. The reconciler asks the
// gateway out of band and flags the order for operator review; it never
// closes a session itself, the callback path stays the only writer of
// terminal outcomes.
type Reconciler struct {
	orders   checkout.OrderRepository
	sessions checkout.SessionRepository
	adapters map[domain.GatewayKind]gateway.Adapter

	interval       time.Duration
	sessionTimeout time.Duration
	batchSize      int
	logger         *slog.Logger
}

func NewReconciler(
	orders checkout.OrderRepository,
	sessions checkout.SessionRepository,
	adapters map[domain.GatewayKind]gateway.Adapter,
	interval time.Duration,
	sessionTimeout time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		orders:         orders,
		sessions:       sessions,
		adapters:       adapters,
		interval:       interval,
		sessionTimeout: sessionTimeout,
		batchSize:      batchSize,
		logger:         logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting reconciler",
		"interval", r.interval,
		"session_timeout", r.sessionTimeout,
		"batch_size", r.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-r.sessionTimeout)
	stale, err := r.orders.FindStaleAuthenticating(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch stale authenticating orders", "error", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	r.logger.Info("reconciling stale orders", "count", len(stale))

	for _, order := range stale {
		r.reconcileOrder(ctx, order)
	}
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order *domain.Order) {
	session, err := r.sessions.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		r.logger.Error("failed to load session for stale order",
			"order_id", order.OrderID, "error", err)
		return
	}

	adapter, ok := r.adapters[session.Gateway]
	if !ok {
		r.logger.Error("no adapter for stale session gateway",
			"order_id", order.OrderID, "gateway", session.Gateway)
		return
	}

	result, err := adapter.Inquire(ctx, order.OrderID)
	if err != nil {
		r.logger.Warn("gateway inquiry failed for stale order",
			"order_id", order.OrderID,
			"gateway", session.Gateway,
			"error", err,
		)
	} else {
		r.logger.Info("gateway answered for stale order",
			"order_id", order.OrderID,
			"gateway", session.Gateway,
			"approved", result.Approved,
			"response_code", result.ResponseCode,
			"raw_status", result.RawStatus,
		)
	}

	if order.FlaggedForReview {
		return
	}
	if err := r.orders.FlagForReview(ctx, order.OrderID); err != nil {
		r.logger.Error("failed to flag stale order for review",
			"order_id", order.OrderID, "error", err)
		return
	}
	r.logger.Warn("stale order flagged for review",
		"order_id", order.OrderID,
		"gateway", session.Gateway,
		"stuck_since", order.CreatedAt,
	)
}
