package checkout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bagisva/vpos-gateway/internal/checkout"
	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
	"github.com/bagisva/vpos-gateway/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	banks map[string]*domain.Bank
}

func (d *stubDirectory) LookupBank(ctx context.Context, binCode string) (*domain.Bank, error) {
	bank, ok := d.banks[binCode]
	if !ok {
		return nil, domain.ErrBinNotFound
	}
	return bank, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceFixture struct {
	orders   *checkout.MockOrderRepository
	sessions *checkout.MockSessionRepository
	projects *checkout.MockProjectDirectory
	service  *checkout.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := testLogger()
	orders := checkout.NewMockOrderRepository()
	sessions := checkout.NewMockSessionRepository()
	projects := &checkout.MockProjectDirectory{}

	directory := &stubDirectory{banks: map[string]*domain.Bank{
		"540061": {ID: 1, Name: "Albaraka", AlternateGatewayEligible: true, IsActive: true},
	}}
	router := routing.NewRouter(directory, logger)
	guard := checkout.NewDuplicateGuard(orders, 24*time.Hour, logger)

	adapters := map[domain.GatewayKind]gateway.Adapter{
		domain.GatewayPrimary:   &checkout.MockAdapter{GatewayKind: domain.GatewayPrimary},
		domain.GatewayAlternate: &checkout.MockAdapter{GatewayKind: domain.GatewayAlternate},
	}

	return &serviceFixture{
		orders:   orders,
		sessions: sessions,
		projects: projects,
		service: checkout.NewService(
			orders, sessions, projects, router, adapters, guard, "949", logger),
	}
}

func sampleCommand() checkout.CheckoutCommand {
	return checkout.CheckoutCommand{
		DonorID: "donor-1",
		Items: []checkout.CartItem{
			{
				ProjectID:       1,
				AmountKurus:     1200000,
				IsSacrifice:     true,
				ShareCount:      3,
				SharePriceKurus: 400000,
			},
			{
				ProjectID:   2,
				AmountKurus: 50000,
			},
		},
		Card: checkout.CardInput{
			Number: "5218480000000000",
			CVV:    "123",
			Expiry: "2712",
			Holder: "AYSE YILMAZ",
		},
	}
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("consolidates the cart into one order", func(t *testing.T) {
		fx := newServiceFixture(t)

		result, err := fx.service.Checkout(ctx, sampleCommand())

		require.NoError(t, err)
		assert.Equal(t, int64(1250000), result.Order.TotalAmountKurus)
		assert.Len(t, result.Order.Lines, 2)
		assert.Equal(t, domain.StatusAuthenticating, result.Order.Status)
		for _, line := range result.Order.Lines {
			assert.Equal(t, result.Order.OrderID, line.OrderID)
		}

		stored, err := fx.orders.FindByOrderID(ctx, result.Order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAuthenticating, stored.Status)
	})

	t.Run("opens a redirected session carrying the MAC", func(t *testing.T) {
		fx := newServiceFixture(t)

		result, err := fx.service.Checkout(ctx, sampleCommand())

		require.NoError(t, err)
		require.NotNil(t, result.Redirect)
		assert.NotEmpty(t, result.Redirect.MAC)

		session, err := fx.sessions.FindByOrderID(ctx, result.Order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionRedirected, session.State)
		assert.Equal(t, result.Redirect.MAC, session.MAC)
	})

	t.Run("routes by BIN", func(t *testing.T) {
		fx := newServiceFixture(t)
		cmd := sampleCommand()
		cmd.Card.Number = "5400610000000004"

		result, err := fx.service.Checkout(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayAlternate, result.Decision.Gateway)
	})

	t.Run("recurring cart routes to primary despite an eligible BIN", func(t *testing.T) {
		fx := newServiceFixture(t)
		cmd := sampleCommand()
		cmd.Card.Number = "5400610000000004"
		cmd.IsRecurring = true

		result, err := fx.service.Checkout(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayPrimary, result.Decision.Gateway)
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		fx := newServiceFixture(t)

		_, err := fx.service.Checkout(ctx, checkout.CheckoutCommand{DonorID: "donor-1"})

		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("rejects an unknown project", func(t *testing.T) {
		fx := newServiceFixture(t)
		fx.projects.ProjectExistsFn = func(ctx context.Context, projectID int64) (bool, error) {
			return false, nil
		}

		_, err := fx.service.Checkout(ctx, sampleCommand())

		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("rejects a sacrifice line with a wrong total", func(t *testing.T) {
		fx := newServiceFixture(t)
		cmd := sampleCommand()
		cmd.Items[0].AmountKurus = 1199999

		_, err := fx.service.Checkout(ctx, cmd)

		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("flags a resubmitted cart but lets it proceed", func(t *testing.T) {
		fx := newServiceFixture(t)

		first, err := fx.service.Checkout(ctx, sampleCommand())
		require.NoError(t, err)

		// Leave the first order PENDING so the guard sees it.
		pending := first.Order
		reset, err := domain.NewOrder(pending.OrderID, pending.DonorID, "949", false,
			[]*domain.DonationLine{
				{ID: "l1", ProjectID: 1, AmountKurus: 1200000, IsSacrifice: true, ShareCount: 3, SharePriceKurus: 400000},
				{ID: "l2", ProjectID: 2, AmountKurus: 50000},
			})
		require.NoError(t, err)
		require.NoError(t, fx.orders.UpdateStatus(ctx, reset))

		second, err := fx.service.Checkout(ctx, sampleCommand())

		require.NoError(t, err)
		assert.Contains(t, second.DuplicateOf, first.Order.OrderID)
		assert.Equal(t, domain.StatusAuthenticating, second.Order.Status)

		flagged, err := fx.orders.FindByOrderID(ctx, first.Order.OrderID)
		require.NoError(t, err)
		assert.True(t, flagged.FlaggedForReview)
	})

	t.Run("guard failure never blocks checkout", func(t *testing.T) {
		fx := newServiceFixture(t)
		fx.orders.FindRecentPendingFn = func(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error) {
			return nil, errors.New("scan failed")
		}

		result, err := fx.service.Checkout(ctx, sampleCommand())

		require.NoError(t, err)
		assert.Empty(t, result.DuplicateOf)
	})
}
