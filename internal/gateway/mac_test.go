package gateway

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	t.Run("matches base64 sha256 of concatenated fields plus secret", func(t *testing.T) {
		sum := sha256.Sum256([]byte("client1order-1100" + "secret"))
		expected := base64.StdEncoding.EncodeToString(sum[:])

		mac, err := Sign("secret", "client1", "order-1", "100")

		require.NoError(t, err)
		assert.Equal(t, expected, mac)
	})

	t.Run("is deterministic", func(t *testing.T) {
		first, err := Sign("secret", "a", "b", "c")
		require.NoError(t, err)
		second, err := Sign("secret", "a", "b", "c")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("any field change changes the whole MAC", func(t *testing.T) {
		base, err := Sign("secret", "client1", "order-1", "100")
		require.NoError(t, err)

		variants := [][]string{
			{"client1", "order-1", "101"},
			{"client1", "order-2", "100"},
			{"client2", "order-1", "100"},
		}
		for _, fields := range variants {
			mac, err := Sign("secret", fields...)
			require.NoError(t, err)
			assert.NotEqual(t, base, mac)
		}

		other, err := Sign("other-secret", "client1", "order-1", "100")
		require.NoError(t, err)
		assert.NotEqual(t, base, other)
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		_, err := Sign("", "client1")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSignatureMissing)
	})
}

func TestVerifyMAC(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		mac, err := Sign("secret", "a", "b")
		require.NoError(t, err)

		ok, err := VerifyMAC("secret", mac, "a", "b")

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects tampered field", func(t *testing.T) {
		mac, err := Sign("secret", "a", "b")
		require.NoError(t, err)

		ok, err := VerifyMAC("secret", mac, "a", "c")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects empty received MAC", func(t *testing.T) {
		ok, err := VerifyMAC("secret", "", "a")

		require.NoError(t, err)
		assert.False(t, ok)
	})
}
