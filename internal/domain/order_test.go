package domain_test

import (
	"testing"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleLine(id string, amount int64) *domain.DonationLine {
	return &domain.DonationLine{
		ID:          id,
		ProjectID:   10,
		AmountKurus: amount,
	}
}

func sacrificeLine(id string, shareCount int, sharePrice int64, shareholders []domain.Shareholder) *domain.DonationLine {
	return &domain.DonationLine{
		ID:              id,
		ProjectID:       20,
		AmountKurus:     int64(shareCount) * sharePrice,
		IsSacrifice:     true,
		ShareCount:      shareCount,
		SharePriceKurus: sharePrice,
		Shareholders:    shareholders,
	}
}

func TestNewOrder(t *testing.T) {
	t.Run("creates order and sums lines exactly", func(t *testing.T) {
		lines := []*domain.DonationLine{
			sacrificeLine("line-1", 3, 400000, nil),
			simpleLine("line-2", 50000),
		}

		order, err := domain.NewOrder("order-1", "donor-1", "949", false, lines)

		require.NoError(t, err)
		assert.Equal(t, "order-1", order.OrderID)
		assert.Equal(t, "donor-1", order.DonorID)
		assert.Equal(t, int64(1250000), order.TotalAmountKurus)
		assert.Equal(t, domain.StatusPending, order.Status)
		assert.Len(t, order.Lines, 2)
		for _, line := range order.Lines {
			assert.Equal(t, "order-1", line.OrderID)
			assert.Equal(t, domain.StatusPending, line.Status)
		}
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		_, err := domain.NewOrder("order-1", "donor-1", "949", false, nil)

		assert.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("rejects empty order ID", func(t *testing.T) {
		_, err := domain.NewOrder("", "donor-1", "949", false,
			[]*domain.DonationLine{simpleLine("line-1", 100)})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "order ID is required")
	})

	t.Run("rejects empty donor ID", func(t *testing.T) {
		_, err := domain.NewOrder("order-1", "", "949", false,
			[]*domain.DonationLine{simpleLine("line-1", 100)})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "donor ID is required")
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := domain.NewOrder("order-1", "donor-1", "949", false,
			[]*domain.DonationLine{simpleLine("line-1", 0)})

		assert.True(t, domain.IsValidationError(err))
	})
}

func TestDonationLineValidate(t *testing.T) {
	t.Run("sacrifice amount must equal shares times price", func(t *testing.T) {
		line := sacrificeLine("line-1", 3, 400000, nil)
		line.AmountKurus = 1250000

		err := line.Validate()

		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
		assert.Contains(t, err.Error(), "does not equal")
	})

	t.Run("accepts nil shareholders", func(t *testing.T) {
		line := sacrificeLine("line-1", 3, 400000, nil)

		assert.NoError(t, line.Validate())
	})

	t.Run("accepts exact shareholder set", func(t *testing.T) {
		line := sacrificeLine("line-1", 3, 400000, []domain.Shareholder{
			{ShareNumber: 2, FullName: "Ayse Yilmaz", PhoneNumber: "05551112233"},
			{ShareNumber: 1, FullName: "Mehmet Demir", PhoneNumber: "05554445566"},
			{ShareNumber: 3, FullName: "Mehmet Demir", PhoneNumber: "05554445566"},
		})

		assert.NoError(t, line.Validate())
	})

	t.Run("rejects duplicate share numbers", func(t *testing.T) {
		line := sacrificeLine("line-1", 3, 400000, []domain.Shareholder{
			{ShareNumber: 1, FullName: "Ayse Yilmaz"},
			{ShareNumber: 1, FullName: "Mehmet Demir"},
			{ShareNumber: 3, FullName: "Fatma Kaya"},
		})

		err := line.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate share number")
	})

	t.Run("rejects incomplete shareholder set", func(t *testing.T) {
		line := sacrificeLine("line-1", 3, 400000, []domain.Shareholder{
			{ShareNumber: 1, FullName: "Ayse Yilmaz"},
			{ShareNumber: 2, FullName: "Mehmet Demir"},
		})

		err := line.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 3 shareholders")
	})

	t.Run("rejects share number outside range", func(t *testing.T) {
		line := sacrificeLine("line-1", 2, 400000, []domain.Shareholder{
			{ShareNumber: 1, FullName: "Ayse Yilmaz"},
			{ShareNumber: 4, FullName: "Mehmet Demir"},
		})

		err := line.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside 1..2")
	})

	t.Run("rejects shareholder without a name", func(t *testing.T) {
		line := sacrificeLine("line-1", 2, 400000, []domain.Shareholder{
			{ShareNumber: 1, FullName: "Ayse Yilmaz"},
			{ShareNumber: 2},
		})

		err := line.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing a full name")
	})
}

func TestOrderTransitions(t *testing.T) {
	newOrder := func(t *testing.T) *domain.Order {
		order, err := domain.NewOrder("order-1", "donor-1", "949", false,
			[]*domain.DonationLine{simpleLine("line-1", 1000)})
		require.NoError(t, err)
		return order
	}

	t.Run("pending to authenticating to succeeded", func(t *testing.T) {
		order := newOrder(t)

		require.NoError(t, order.MarkAuthenticating())
		require.NoError(t, order.Succeed())

		assert.Equal(t, domain.StatusSucceeded, order.Status)
		assert.Equal(t, domain.StatusSucceeded, order.Lines[0].Status)
		assert.True(t, order.IsTerminal())
	})

	t.Run("pending to authenticating to failed", func(t *testing.T) {
		order := newOrder(t)

		require.NoError(t, order.MarkAuthenticating())
		require.NoError(t, order.Fail())

		assert.Equal(t, domain.StatusFailed, order.Status)
		assert.Equal(t, domain.StatusFailed, order.Lines[0].Status)
	})

	t.Run("cannot succeed from pending", func(t *testing.T) {
		order := newOrder(t)

		assert.ErrorIs(t, order.Succeed(), domain.ErrInvalidTransition)
	})

	t.Run("terminal order accepts no transitions", func(t *testing.T) {
		order := newOrder(t)
		require.NoError(t, order.MarkAuthenticating())
		require.NoError(t, order.Succeed())

		assert.ErrorIs(t, order.Fail(), domain.ErrInvalidTransition)
		assert.ErrorIs(t, order.MarkAuthenticating(), domain.ErrInvalidTransition)
	})
}
