package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `order_id, gateway, mac, state, created_at, callback_received_at, outcome`

// SessionRepository runs over either the pool or a transaction handed out
// by the TransactionCoordinator.
type SessionRepository struct {
	q persistence.Executor
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{q: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.PaymentSession) error {
	m, err := toSessionModel(session)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO payment_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		m.OrderID, m.Gateway, m.MAC, m.State, m.CreatedAt, m.CallbackReceivedAt, m.Outcome,
	)
	if err != nil {
		return fmt.Errorf("insert payment session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentSession, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions WHERE order_id = $1
	`, orderID)

	var m SessionModel
	err := row.Scan(&m.OrderID, &m.Gateway, &m.MAC, &m.State, &m.CreatedAt, &m.CallbackReceivedAt, &m.Outcome)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan payment session: %w", err)
	}
	return toDomainSession(m)
}

// CloseSession writes the terminal state and outcome with a compare-and-set
// guard on the stored state. It reports false when the stored session is
// already terminal, so exactly one callback delivery wins the close even
// across concurrent instances.
func (r *SessionRepository) CloseSession(ctx context.Context, session *domain.PaymentSession) (bool, error) {
	m, err := toSessionModel(session)
	if err != nil {
		return false, err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_sessions
		SET state = $1, callback_received_at = $2, outcome = $3
		WHERE order_id = $4
		  AND state NOT IN ('VERIFIED', 'REJECTED')
	`,
		m.State, m.CallbackReceivedAt, m.Outcome, m.OrderID,
	)
	if err != nil {
		return false, fmt.Errorf("close payment session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
