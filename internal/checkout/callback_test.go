package checkout_test

import (
	"context"
	"sync"
	"testing"

	"github.com/bagisva/vpos-gateway/internal/checkout"
	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callbackFixture struct {
	orders   *checkout.MockOrderRepository
	sessions *checkout.MockSessionRepository
	tx       *checkout.MockTransactionCoordinator
	adapter  *checkout.MockAdapter
	service  *checkout.CallbackService
}

// newCallbackFixture seeds one AUTHENTICATING order with a REDIRECTED
// primary session, the state a real order is in when the bank calls back.
func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()
	ctx := context.Background()

	orders := checkout.NewMockOrderRepository()
	sessions := checkout.NewMockSessionRepository()

	order := pendingOrder(t, "order-1", "donor-1",
		[]*domain.DonationLine{{ID: "line-1", ProjectID: 1, AmountKurus: 50000}})
	require.NoError(t, order.MarkAuthenticating())
	require.NoError(t, orders.CreateOrder(ctx, order))

	session, err := domain.NewPaymentSession("order-1", domain.GatewayPrimary, "mac-1")
	require.NoError(t, err)
	require.NoError(t, session.MarkRedirected())
	require.NoError(t, sessions.CreateSession(ctx, session))

	adapter := &checkout.MockAdapter{GatewayKind: domain.GatewayPrimary}
	adapters := map[domain.GatewayKind]gateway.Adapter{domain.GatewayPrimary: adapter}
	tx := checkout.NewMockTransactionCoordinator(orders, sessions)

	return &callbackFixture{
		orders:   orders,
		sessions: sessions,
		tx:       tx,
		adapter:  adapter,
		service:  checkout.NewCallbackService(orders, sessions, tx, adapters, testLogger()),
	}
}

func TestProcessCallback(t *testing.T) {
	ctx := context.Background()
	fields := map[string]string{"oid": "order-1"}

	t.Run("verified callback closes order as succeeded", func(t *testing.T) {
		fx := newCallbackFixture(t)

		receipt, err := fx.service.Process(ctx, domain.GatewayPrimary, fields)

		require.NoError(t, err)
		assert.True(t, receipt.Outcome.Verified)
		assert.Equal(t, domain.StatusSucceeded, receipt.Order.Status)

		session, err := fx.sessions.FindByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SessionVerified, session.State)
		require.NotNil(t, session.Outcome)
		assert.True(t, session.Outcome.Verified)
	})

	t.Run("rejected callback closes order as failed", func(t *testing.T) {
		fx := newCallbackFixture(t)
		fx.adapter.InterpretCallbackFn = func(f map[string]string) (*gateway.CallbackResult, error) {
			return &gateway.CallbackResult{
				OrderID: f["oid"],
				Outcome: domain.RejectedOutcome(domain.ReasonAuthFailed, "0", "", "auth failed"),
			}, nil
		}

		receipt, err := fx.service.Process(ctx, domain.GatewayPrimary, fields)

		require.NoError(t, err)
		assert.False(t, receipt.Outcome.Verified)
		assert.Equal(t, domain.StatusFailed, receipt.Order.Status)

		session, err := fx.sessions.FindByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SessionRejected, session.State)
	})

	t.Run("second delivery is a replay and the first outcome stands", func(t *testing.T) {
		fx := newCallbackFixture(t)

		_, err := fx.service.Process(ctx, domain.GatewayPrimary, fields)
		require.NoError(t, err)

		fx.adapter.InterpretCallbackFn = func(f map[string]string) (*gateway.CallbackResult, error) {
			return &gateway.CallbackResult{
				OrderID: f["oid"],
				Outcome: domain.RejectedOutcome(domain.ReasonAuthFailed, "0", "", ""),
			}, nil
		}
		receipt, err := fx.service.Process(ctx, domain.GatewayPrimary, fields)

		assert.ErrorIs(t, err, domain.ErrReplayDetected)
		require.NotNil(t, receipt)
		assert.True(t, receipt.Replayed)
		assert.True(t, receipt.Outcome.Verified)

		order, err := fx.orders.FindByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSucceeded, order.Status)

		session, err := fx.sessions.FindByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.True(t, session.Outcome.Verified)
	})

	t.Run("exactly one of many concurrent deliveries wins", func(t *testing.T) {
		fx := newCallbackFixture(t)

		const deliveries = 16
		var wg sync.WaitGroup
		errs := make([]error, deliveries)
		for i := 0; i < deliveries; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = fx.service.Process(ctx, domain.GatewayPrimary, fields)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, domain.ErrReplayDetected)
			}
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("callback on the wrong gateway endpoint is rejected", func(t *testing.T) {
		fx := newCallbackFixture(t)
		alternate := &checkout.MockAdapter{GatewayKind: domain.GatewayAlternate}
		service := checkout.NewCallbackService(fx.orders, fx.sessions, fx.tx,
			map[domain.GatewayKind]gateway.Adapter{domain.GatewayAlternate: alternate}, testLogger())

		_, err := service.Process(ctx, domain.GatewayAlternate, fields)

		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))

		order, err := fx.orders.FindByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAuthenticating, order.Status)
	})

	t.Run("unknown session is surfaced", func(t *testing.T) {
		fx := newCallbackFixture(t)

		_, err := fx.service.Process(ctx, domain.GatewayPrimary, map[string]string{"oid": "order-404"})

		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("session close and order update share one transaction", func(t *testing.T) {
		fx := newCallbackFixture(t)

		receipt, err := fx.service.Process(ctx, domain.GatewayPrimary, fields)

		require.NoError(t, err)
		assert.Equal(t, 1, fx.tx.CallCount())
		assert.Equal(t, domain.StatusSucceeded, receipt.Order.Status)

		session, err := fx.sessions.FindByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SessionVerified, session.State)
	})

	t.Run("order update failure fails the whole callback", func(t *testing.T) {
		fx := newCallbackFixture(t)
		fx.orders.UpdateStatusFn = func(ctx context.Context, order *domain.Order) error {
			return assert.AnError
		}

		_, err := fx.service.Process(ctx, domain.GatewayPrimary, fields)

		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("adapter rejection stops before any state is touched", func(t *testing.T) {
		fx := newCallbackFixture(t)
		fx.adapter.InterpretCallbackFn = func(f map[string]string) (*gateway.CallbackResult, error) {
			return nil, domain.NewValidationError("HASH", "callback return hash mismatch")
		}

		_, err := fx.service.Process(ctx, domain.GatewayPrimary, fields)

		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))

		session, err := fx.sessions.FindByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SessionRedirected, session.State)
	})
}
