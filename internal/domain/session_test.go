package domain_test

import (
	"testing"
	"time"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentSession(t *testing.T) {
	t.Run("opens in INITIATED", func(t *testing.T) {
		session, err := domain.NewPaymentSession("order-1", domain.GatewayPrimary, "mac-1")

		require.NoError(t, err)
		assert.Equal(t, domain.SessionInitiated, session.State)
		assert.Equal(t, "mac-1", session.MAC)
		assert.False(t, session.IsTerminal())
	})

	t.Run("rejects missing order ID", func(t *testing.T) {
		_, err := domain.NewPaymentSession("", domain.GatewayPrimary, "mac-1")

		assert.Error(t, err)
	})

	t.Run("rejects missing MAC", func(t *testing.T) {
		_, err := domain.NewPaymentSession("order-1", domain.GatewayPrimary, "")

		assert.ErrorIs(t, err, domain.ErrSignatureMissing)
	})
}

func TestSessionLifecycle(t *testing.T) {
	open := func(t *testing.T) *domain.PaymentSession {
		session, err := domain.NewPaymentSession("order-1", domain.GatewayAlternate, "mac-1")
		require.NoError(t, err)
		require.NoError(t, session.MarkRedirected())
		return session
	}

	t.Run("closes verified", func(t *testing.T) {
		session := open(t)
		at := time.Now()

		require.NoError(t, session.ReceiveCallback(at))
		require.NoError(t, session.Close(domain.VerifiedOutcome("1", "0000", "A1", "H1")))

		assert.Equal(t, domain.SessionVerified, session.State)
		assert.True(t, session.IsTerminal())
		require.NotNil(t, session.CallbackReceivedAt)
		assert.Equal(t, at, *session.CallbackReceivedAt)
		require.NotNil(t, session.Outcome)
		assert.True(t, session.Outcome.Verified)
	})

	t.Run("closes rejected", func(t *testing.T) {
		session := open(t)

		require.NoError(t, session.ReceiveCallback(time.Now()))
		require.NoError(t, session.Close(
			domain.RejectedOutcome(domain.ReasonAuthFailed, "0", "", "auth failed")))

		assert.Equal(t, domain.SessionRejected, session.State)
		assert.Equal(t, domain.ReasonAuthFailed, session.Outcome.Reason)
	})

	t.Run("callback on terminal session is a replay", func(t *testing.T) {
		session := open(t)
		require.NoError(t, session.ReceiveCallback(time.Now()))
		require.NoError(t, session.Close(domain.VerifiedOutcome("1", "0000", "A1", "H1")))

		err := session.ReceiveCallback(time.Now())

		assert.ErrorIs(t, err, domain.ErrReplayDetected)
		assert.Equal(t, domain.SessionVerified, session.State)
		assert.True(t, session.Outcome.Verified)
	})

	t.Run("close on terminal session is a replay", func(t *testing.T) {
		session := open(t)
		require.NoError(t, session.ReceiveCallback(time.Now()))
		require.NoError(t, session.Close(domain.VerifiedOutcome("1", "0000", "A1", "H1")))

		err := session.Close(domain.RejectedOutcome(domain.ReasonDeclined, "1", "99", ""))

		assert.ErrorIs(t, err, domain.ErrReplayDetected)
		assert.True(t, session.Outcome.Verified)
	})

	t.Run("cannot receive callback before redirect", func(t *testing.T) {
		session, err := domain.NewPaymentSession("order-1", domain.GatewayPrimary, "mac-1")
		require.NoError(t, err)

		assert.ErrorIs(t, session.ReceiveCallback(time.Now()), domain.ErrInvalidTransition)
	})

	t.Run("cannot close before callback", func(t *testing.T) {
		session := open(t)

		err := session.Close(domain.VerifiedOutcome("1", "0000", "A1", "H1"))

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}
