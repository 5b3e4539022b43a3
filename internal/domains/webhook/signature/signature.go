package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// =====================================================
// WEBHOOK SIGNATURE
// =====================================================

const prefix = "sha256="

// Sign computes the signature for a webhook body:
// "sha256=" + hex(HMAC-SHA256(secret, body)).
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature against the body in constant time.
func Verify(body []byte, secret, received string) bool {
	if !strings.HasPrefix(received, prefix) {
		return false
	}

	expected, err := hex.DecodeString(strings.TrimPrefix(received, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(expected, mac.Sum(nil))
}
