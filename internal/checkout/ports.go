package checkout

import (
	"context"
	"time"

	"github.com/bagisva/vpos-gateway/internal/domain"
)

// OrderRepository is the port for order persistence. CreateOrder persists
// the order and all its donation lines in one atomic unit; UpdateStatus
// writes the order and mirrored line statuses in one transaction scoped to
// a single order.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, order *domain.Order) error
	FindRecentPending(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error)
	FindStaleAuthenticating(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error)
	FlagForReview(ctx context.Context, orderID string) error
}

// SessionRepository is the port for payment session persistence.
// CloseSession is a compare-and-set: it reports false when the stored
// session already reached a terminal state, so exactly one terminal
// outcome wins under concurrent callbacks.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.PaymentSession) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentSession, error)
	CloseSession(ctx context.Context, session *domain.PaymentSession) (bool, error)
}

// TransactionCoordinator scopes a group of repository writes to one atomic
// transaction. fn receives repository instances bound to that transaction;
// either every write in fn commits or none does.
type TransactionCoordinator interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, orders OrderRepository, sessions SessionRepository) error) error
}

// ProjectDirectory answers whether a donation target exists. Owned by the
// content layer; the core only queries it.
type ProjectDirectory interface {
	ProjectExists(ctx context.Context, projectID int64) (bool, error)
}
