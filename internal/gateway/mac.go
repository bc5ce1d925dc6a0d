package gateway

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/bagisva/vpos-gateway/internal/domain"
)

// Sign computes the gateway MAC: base64(SHA-256(field1..fieldN || secret)).
// The field sequence is part of each gateway's wire contract and is owned
// by the adapter that calls Sign. The function is pure; neither the fields
// nor the secret are logged or retained.
func Sign(secret string, fields ...string) (string, error) {
	if secret == "" {
		return "", domain.NewSignatureError(domain.ErrSignatureMissing)
	}

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f)
	}
	b.WriteString(secret)

	sum := sha256.Sum256([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// VerifyMAC recomputes a MAC over the given fields and compares it to the
// received value. Used for callback authenticity checks.
func VerifyMAC(secret, received string, fields ...string) (bool, error) {
	if received == "" {
		return false, nil
	}
	expected, err := Sign(secret, fields...)
	if err != nil {
		return false, err
	}
	return expected == received, nil
}
