package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	SecretPrefix = "whsec_"
	secretLength = 32
)

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecret returns "whsec_" followed by 32 random alphanumeric characters.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretLength)
	limit := big.NewInt(int64(len(secretAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating secret: %w", err)
		}
		buf[i] = secretAlphabet[n.Int64()]
	}
	return SecretPrefix + string(buf), nil
}

// Sign returns the lowercase hex HMAC-SHA256 of payload keyed by secret.
// payload must be the exact bytes that go on the wire.
func Sign(payload []byte, secret string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(payload)
	return hex.EncodeToString(m.Sum(nil))
}

// Verify is the receiver side of Sign.
func Verify(payload []byte, secret, signature string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
