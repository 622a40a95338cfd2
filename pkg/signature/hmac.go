// Package signature signs and verifies payment gateway webhook bodies.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex encoded HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC-SHA256 of the exact body bytes.
// The comparison is constant time.
func Verify(secret, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || len(secret) == 0 {
		return false
	}
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)
	if len(decoded) != len(expected) {
		return false
	}
	return hmac.Equal(decoded, expected)
}
