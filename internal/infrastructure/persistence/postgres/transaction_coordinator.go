package postgres

import (
	"context"
	"fmt"

	"github.com/bagisva/vpos-gateway/internal/checkout"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionCoordinator groups order and session writes into one database
// transaction. Callback finalization needs the session close and the order
// status update to commit or roll back together; a crash between them would
// otherwise leave a terminal session next to an order stuck in
// AUTHENTICATING.
type TransactionCoordinator struct {
	pool *pgxpool.Pool
}

func NewTransactionCoordinator(pool *pgxpool.Pool) *TransactionCoordinator {
	return &TransactionCoordinator{pool: pool}
}

// WithTransaction executes fn within a database transaction. fn receives
// repository instances bound to that transaction; their writes become
// visible only on commit.
func (tc *TransactionCoordinator) WithTransaction(
	ctx context.Context,
	fn func(ctx context.Context, orders checkout.OrderRepository, sessions checkout.SessionRepository) error,
) error {
	tx, err := tc.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txOrders := &OrderRepository{q: tx}
	txSessions := &SessionRepository{q: tx}

	if err := fn(ctx, txOrders, txSessions); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
