package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `order_id, donor_id, total_amount_kurus, currency, is_recurring,
	       status, flagged_for_review, created_at, updated_at`

const lineColumns = `id, order_id, project_id, amount_kurus, is_sacrifice, share_count,
	       share_price_kurus, shareholders, message, is_anonymous, status, created_at`

// OrderRepository runs over either the pool or a transaction handed out by
// the TransactionCoordinator. db is nil for tx-scoped instances; then q is
// the enclosing transaction and the multi-statement writes join it instead
// of opening their own.
type OrderRepository struct {
	db *pgxpool.Pool
	q  persistence.Executor
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db, q: db}
}

// CreateOrder persists the order and all its donation lines in one
// transaction. A cart is one payable unit; it never half-exists.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if r.db == nil {
		return r.createOrder(ctx, r.q, order)
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return r.createOrder(ctx, tx, order)
	})
}

func (r *OrderRepository) createOrder(ctx context.Context, q persistence.Executor, order *domain.Order) error {
	o := toOrderModel(order)
	_, err := q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		o.OrderID, o.DonorID, o.TotalAmountKurus, o.Currency, o.IsRecurring,
		o.Status, o.FlaggedForReview, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		l, err := toLineModel(line)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `
			INSERT INTO donation_lines (`+lineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			l.ID, l.OrderID, l.ProjectID, l.AmountKurus, l.IsSacrifice, l.ShareCount,
			l.SharePriceKurus, l.Shareholders, l.Message, l.IsAnonymous, l.Status, l.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert donation line %s: %w", l.ID, err)
		}
	}
	return nil
}

// FindByOrderID retrieves an order with its donation lines.
func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE order_id = $1
	`, orderID)

	var m OrderModel
	err := row.Scan(
		&m.OrderID, &m.DonorID, &m.TotalAmountKurus, &m.Currency, &m.IsRecurring,
		&m.Status, &m.FlaggedForReview, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	lines, err := r.findLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toDomainOrder(m, lines), nil
}

// UpdateStatus writes the order status and mirrors it onto every line in
// one transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	if r.db == nil {
		return r.updateStatus(ctx, r.q, order)
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return r.updateStatus(ctx, tx, order)
	})
}

func (r *OrderRepository) updateStatus(ctx context.Context, q persistence.Executor, order *domain.Order) error {
	tag, err := q.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = $2 WHERE order_id = $3
	`, string(order.Status), order.UpdatedAt, order.OrderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	_, err = q.Exec(ctx, `
		UPDATE donation_lines SET status = $1 WHERE order_id = $2
	`, string(order.Status), order.OrderID)
	if err != nil {
		return fmt.Errorf("mirror status to donation lines: %w", err)
	}
	return nil
}

// FindRecentPending returns PENDING orders created after the cutoff, newest
// first, for the duplicate guard scan.
func (r *OrderRepository) FindRecentPending(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error) {
	return r.findByStatus(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'PENDING' AND created_at > $1
		ORDER BY created_at DESC
		LIMIT $2
	`, since, limit)
}

// FindStaleAuthenticating returns AUTHENTICATING orders older than the
// cutoff for the reconciliation worker.
func (r *OrderRepository) FindStaleAuthenticating(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
	return r.findByStatus(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'AUTHENTICATING' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, olderThan, limit)
}

// FlagForReview marks a suspected duplicate. The order is never deleted;
// review and deletion are operator actions.
func (r *OrderRepository) FlagForReview(ctx context.Context, orderID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET flagged_for_review = TRUE, updated_at = NOW() WHERE order_id = $1
	`, orderID)
	if err != nil {
		return fmt.Errorf("flag order for review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) findByStatus(ctx context.Context, query string, cutoff time.Time, limit int) ([]*domain.Order, error) {
	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	models, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderModel, error) {
		var m OrderModel
		err := row.Scan(
			&m.OrderID, &m.DonorID, &m.TotalAmountKurus, &m.Currency, &m.IsRecurring,
			&m.Status, &m.FlaggedForReview, &m.CreatedAt, &m.UpdatedAt,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}

	results := make([]*domain.Order, 0, len(models))
	for _, m := range models {
		lines, err := r.findLines(ctx, m.OrderID)
		if err != nil {
			return nil, err
		}
		results = append(results, toDomainOrder(m, lines))
	}
	return results, nil
}

func (r *OrderRepository) findLines(ctx context.Context, orderID string) ([]*domain.DonationLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+lineColumns+`
		FROM donation_lines WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query donation lines: %w", err)
	}

	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.DonationLine, error) {
		var m LineModel
		err := row.Scan(
			&m.ID, &m.OrderID, &m.ProjectID, &m.AmountKurus, &m.IsSacrifice, &m.ShareCount,
			&m.SharePriceKurus, &m.Shareholders, &m.Message, &m.IsAnonymous, &m.Status, &m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		return toDomainLine(m)
	})
	if err != nil {
		return nil, fmt.Errorf("scan donation lines: %w", err)
	}
	return lines, nil
}
