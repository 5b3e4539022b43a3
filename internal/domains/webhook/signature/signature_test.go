package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign_ProducesStablePrefixedDigest(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"payment.created"}`)

	sig := Sign(body, "whsec_test_secret")

	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.Len(t, sig, len("sha256=")+64)

	// Same inputs always produce the same signature.
	assert.Equal(t, sig, Sign(body, "whsec_test_secret"))
}

func TestVerify_AcceptsValidSignature(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"refund.created","data":{"amount":250}}`)
	secret := "whsec_other_secret"

	sig := Sign(body, secret)

	assert.True(t, Verify(body, secret, sig))
}

func TestVerify_RejectsTamperedBody(t *testing.T) {
	body := []byte(`{"amount":1000}`)
	sig := Sign(body, "whsec_test_secret")

	tampered := []byte(`{"amount":1001}`)
	assert.False(t, Verify(tampered, "whsec_test_secret", sig))
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	body := []byte(`{"amount":1000}`)
	sig := Sign(body, "whsec_test_secret")

	assert.False(t, Verify(body, "whsec_wrong_secret", sig))
}

func TestVerify_RejectsMutatedSignature(t *testing.T) {
	body := []byte(`{"amount":1000}`)
	sig := Sign(body, "whsec_test_secret")

	// Flip the last hex character.
	last := sig[len(sig)-1]
	var flipped byte = 'a'
	if last == 'a' {
		flipped = 'b'
	}
	mutated := sig[:len(sig)-1] + string(flipped)

	assert.False(t, Verify(body, "whsec_test_secret", mutated))
}

func TestVerify_RejectsMissingPrefix(t *testing.T) {
	body := []byte(`{"amount":1000}`)
	sig := Sign(body, "whsec_test_secret")

	assert.False(t, Verify(body, "whsec_test_secret", strings.TrimPrefix(sig, "sha256=")))
}
