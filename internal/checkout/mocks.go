package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
)

// MockOrderRepository is an in-memory OrderRepository for tests. Every
// method can be overridden through its Fn field; the default behavior is a
// map-backed store.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	CreateOrderFn             func(ctx context.Context, order *domain.Order) error
	FindByOrderIDFn           func(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateStatusFn            func(ctx context.Context, order *domain.Order) error
	FindRecentPendingFn       func(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error)
	FindStaleAuthenticatingFn func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error)
	FlagForReviewFn           func(ctx context.Context, orderID string) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]*domain.Order)}
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if m.CreateOrderFn != nil {
		return m.CreateOrderFn(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OrderID] = order
	return nil
}

func (m *MockOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	if m.FindByOrderIDFn != nil {
		return m.FindByOrderIDFn(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OrderID] = order
	return nil
}

func (m *MockOrderRepository) FindRecentPending(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error) {
	if m.FindRecentPendingFn != nil {
		return m.FindRecentPendingFn(ctx, since, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		if order.Status == domain.StatusPending && order.CreatedAt.After(since) {
			out = append(out, order)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOrderRepository) FindStaleAuthenticating(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
	if m.FindStaleAuthenticatingFn != nil {
		return m.FindStaleAuthenticatingFn(ctx, olderThan, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		if order.Status == domain.StatusAuthenticating && order.CreatedAt.Before(olderThan) {
			out = append(out, order)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOrderRepository) FlagForReview(ctx context.Context, orderID string) error {
	if m.FlagForReviewFn != nil {
		return m.FlagForReviewFn(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.FlaggedForReview = true
	return nil
}

// MockSessionRepository is an in-memory SessionRepository for tests.
type MockSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.PaymentSession
	closed   map[string]bool

	CreateSessionFn func(ctx context.Context, session *domain.PaymentSession) error
	FindByOrderIDFn func(ctx context.Context, orderID string) (*domain.PaymentSession, error)
	CloseSessionFn  func(ctx context.Context, session *domain.PaymentSession) (bool, error)
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*domain.PaymentSession),
		closed:   make(map[string]bool),
	}
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *domain.PaymentSession) error {
	if m.CreateSessionFn != nil {
		return m.CreateSessionFn(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.OrderID] = session
	return nil
}

func (m *MockSessionRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentSession, error) {
	if m.FindByOrderIDFn != nil {
		return m.FindByOrderIDFn(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[orderID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionRepository) CloseSession(ctx context.Context, session *domain.PaymentSession) (bool, error) {
	if m.CloseSessionFn != nil {
		return m.CloseSessionFn(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed[session.OrderID] {
		return false, nil
	}
	m.closed[session.OrderID] = true
	m.sessions[session.OrderID] = session
	return true, nil
}

// MockTransactionCoordinator runs the transactional function directly
// against the given mocks. Calls counts invocations so tests can assert
// the writes went through one transactional unit.
type MockTransactionCoordinator struct {
	Orders   OrderRepository
	Sessions SessionRepository

	mu    sync.Mutex
	calls int

	WithTransactionFn func(ctx context.Context, fn func(ctx context.Context, orders OrderRepository, sessions SessionRepository) error) error
}

func NewMockTransactionCoordinator(orders OrderRepository, sessions SessionRepository) *MockTransactionCoordinator {
	return &MockTransactionCoordinator{Orders: orders, Sessions: sessions}
}

func (m *MockTransactionCoordinator) WithTransaction(ctx context.Context, fn func(ctx context.Context, orders OrderRepository, sessions SessionRepository) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.WithTransactionFn != nil {
		return m.WithTransactionFn(ctx, fn)
	}
	return fn(ctx, m.Orders, m.Sessions)
}

// CallCount reports how many transactions ran.
func (m *MockTransactionCoordinator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockProjectDirectory answers project existence checks in tests. By
// default every project exists.
type MockProjectDirectory struct {
	ProjectExistsFn func(ctx context.Context, projectID int64) (bool, error)
}

func (m *MockProjectDirectory) ProjectExists(ctx context.Context, projectID int64) (bool, error) {
	if m.ProjectExistsFn != nil {
		return m.ProjectExistsFn(ctx, projectID)
	}
	return true, nil
}

// MockAdapter is a gateway.Adapter test double.
type MockAdapter struct {
	GatewayKind domain.GatewayKind

	BuildRedirectFn     func(order *domain.Order, card gateway.Card) (*gateway.RedirectForm, error)
	InterpretCallbackFn func(fields map[string]string) (*gateway.CallbackResult, error)
	InquireFn           func(ctx context.Context, orderID string) (*gateway.InquiryResult, error)
	VoidFn              func(ctx context.Context, transactionID string, amountKurus int64) error
	RefundFn            func(ctx context.Context, transactionID string, amountKurus int64) error
}

func (m *MockAdapter) Kind() domain.GatewayKind {
	return m.GatewayKind
}

func (m *MockAdapter) BuildRedirect(order *domain.Order, card gateway.Card) (*gateway.RedirectForm, error) {
	if m.BuildRedirectFn != nil {
		return m.BuildRedirectFn(order, card)
	}
	return &gateway.RedirectForm{
		Action: "https://bank.example/3ds",
		Method: "POST",
		Fields: map[string]string{"oid": order.OrderID},
		MAC:    "mock-mac",
	}, nil
}

func (m *MockAdapter) InterpretCallback(fields map[string]string) (*gateway.CallbackResult, error) {
	if m.InterpretCallbackFn != nil {
		return m.InterpretCallbackFn(fields)
	}
	return &gateway.CallbackResult{
		OrderID: fields["oid"],
		Outcome: domain.VerifiedOutcome("1", "00", "AUTH1", "TX1"),
	}, nil
}

func (m *MockAdapter) Inquire(ctx context.Context, orderID string) (*gateway.InquiryResult, error) {
	if m.InquireFn != nil {
		return m.InquireFn(ctx, orderID)
	}
	return &gateway.InquiryResult{OrderID: orderID, Approved: true, ResponseCode: "00"}, nil
}

func (m *MockAdapter) Void(ctx context.Context, transactionID string, amountKurus int64) error {
	if m.VoidFn != nil {
		return m.VoidFn(ctx, transactionID, amountKurus)
	}
	return nil
}

func (m *MockAdapter) Refund(ctx context.Context, transactionID string, amountKurus int64) error {
	if m.RefundFn != nil {
		return m.RefundFn(ctx, transactionID, amountKurus)
	}
	return nil
}
