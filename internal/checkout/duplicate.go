package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bagisva/vpos-gateway/internal/domain"
)

const duplicateScanLimit = 200

// DuplicateGuard detects resubmission of an equivalent cart within a short
// window. Two orders match when donor identity, total amount, sacrifice
// flag and share count are all equal. The guard is advisory: the newest
// order proceeds and earlier matches are flagged for operator review.
// Deletion is an explicit operator action, never automatic.
type DuplicateGuard struct {
	orders OrderRepository
	window time.Duration
	logger *slog.Logger
}

func NewDuplicateGuard(orders OrderRepository, window time.Duration, logger *slog.Logger) *DuplicateGuard {
	return &DuplicateGuard{
		orders: orders,
		window: window,
		logger: logger,
	}
}

// Check scans recently created, still-PENDING orders for duplicates of the
// given order and flags the earlier ones. Returns the flagged order IDs.
func (g *DuplicateGuard) Check(ctx context.Context, order *domain.Order) ([]string, error) {
	since := time.Now().Add(-g.window)
	recent, err := g.orders.FindRecentPending(ctx, since, duplicateScanLimit)
	if err != nil {
		return nil, fmt.Errorf("scan recent pending orders: %w", err)
	}

	sacrifice, shares := cartShape(order)

	var flagged []string
	for _, candidate := range recent {
		if candidate.OrderID == order.OrderID {
			continue
		}
		if candidate.DonorID != order.DonorID {
			continue
		}
		if candidate.TotalAmountKurus != order.TotalAmountKurus {
			continue
		}
		cSacrifice, cShares := cartShape(candidate)
		if cSacrifice != sacrifice || cShares != shares {
			continue
		}

		if err := g.orders.FlagForReview(ctx, candidate.OrderID); err != nil {
			return flagged, fmt.Errorf("flag order %s: %w", candidate.OrderID, err)
		}
		flagged = append(flagged, candidate.OrderID)

		g.logger.Warn("duplicate order flagged for review",
			"order_id", candidate.OrderID,
			"duplicate_of", order.OrderID,
			"donor_id", order.DonorID,
			"total_kurus", order.TotalAmountKurus,
		)
	}

	return flagged, nil
}

// cartShape reduces an order to the duplicate-matching key parts beyond
// donor and amount: whether it contains sacrifice lines and the total
// share count.
func cartShape(order *domain.Order) (bool, int) {
	sacrifice := false
	shares := 0
	for _, line := range order.Lines {
		if line.IsSacrifice {
			sacrifice = true
			shares += line.ShareCount
		}
	}
	return sacrifice, shares
}
