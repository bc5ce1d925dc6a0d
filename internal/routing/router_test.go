package routing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	banks map[string]*domain.Bank
	err   error
}

func (d *stubDirectory) LookupBank(ctx context.Context, binCode string) (*domain.Bank, error) {
	if d.err != nil {
		return nil, d.err
	}
	bank, ok := d.banks[binCode]
	if !ok {
		return nil, domain.ErrBinNotFound
	}
	return bank, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRoute(t *testing.T) {
	directory := &stubDirectory{banks: map[string]*domain.Bank{
		"540061": {ID: 1, Name: "Albaraka", AlternateGatewayEligible: true, IsActive: true},
		"521848": {ID: 2, Name: "Türkiye Finans", AlternateGatewayEligible: false, IsActive: true},
		"411111": {ID: 3, Name: "Dormant Bank", AlternateGatewayEligible: true, IsActive: false},
	}}
	router := routing.NewRouter(directory, testLogger())
	ctx := context.Background()

	t.Run("eligible active bank routes to alternate", func(t *testing.T) {
		decision, err := router.Route(ctx, "5400610000000004", false)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayAlternate, decision.Gateway)
		require.NotNil(t, decision.Bank)
		assert.Equal(t, "Albaraka", decision.Bank.Name)
	})

	t.Run("mapped but ineligible bank routes to primary", func(t *testing.T) {
		decision, err := router.Route(ctx, "5218480000000000", false)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayPrimary, decision.Gateway)
	})

	t.Run("inactive bank routes to primary", func(t *testing.T) {
		decision, err := router.Route(ctx, "4111110000000000", false)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayPrimary, decision.Gateway)
		assert.Contains(t, decision.Reason, "inactive")
	})

	t.Run("unmapped BIN routes to primary", func(t *testing.T) {
		decision, err := router.Route(ctx, "9999990000000000", false)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayPrimary, decision.Gateway)
		assert.Contains(t, decision.Reason, "not registered")
	})

	t.Run("recurring always routes to primary without a lookup", func(t *testing.T) {
		decision, err := router.Route(ctx, "5400610000000004", true)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayPrimary, decision.Gateway)
		assert.Contains(t, decision.Reason, "recurring")
	})

	t.Run("card number with spaces still routes by BIN", func(t *testing.T) {
		decision, err := router.Route(ctx, "5400 6100 0000 0004", false)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayAlternate, decision.Gateway)
	})

	t.Run("directory failure falls back to primary with audited reason", func(t *testing.T) {
		broken := routing.NewRouter(&stubDirectory{err: errors.New("connection refused")}, testLogger())

		decision, err := broken.Route(ctx, "5400610000000004", false)

		require.NoError(t, err)
		assert.Equal(t, domain.GatewayPrimary, decision.Gateway)
		assert.Contains(t, decision.Reason, "fallback")
	})

	t.Run("too-short card number is a validation error", func(t *testing.T) {
		_, err := router.Route(ctx, "12345", false)

		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
	})
}

func TestExtractBIN(t *testing.T) {
	bin, err := routing.ExtractBIN("5400610000000004")
	require.NoError(t, err)
	assert.Equal(t, "540061", bin)

	bin, err = routing.ExtractBIN("5400 6100 0000 0004")
	require.NoError(t, err)
	assert.Equal(t, "540061", bin)

	_, err = routing.ExtractBIN("54")
	assert.Error(t, err)
}
