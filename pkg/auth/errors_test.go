package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	expired := Verificationf(KindExpired, "stale")
	assert.Equal(t, KindExpired, KindOf(expired))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("verify failed: %w", expired)
	assert.Equal(t, KindExpired, KindOf(wrapped))

	// Unclassified errors count as network trouble.
	assert.Equal(t, KindNetworkError, KindOf(errors.New("connection reset")))
}

func TestVerificationErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := NewVerificationError(KindSignatureInvalid, "bad signature", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "signature_invalid")
	assert.Contains(t, err.Error(), "bad signature")
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryable(Verificationf(KindNetworkError, "timeout")))
	assert.True(t, IsRetryable(Verificationf(KindRemoteEndpointError, "502")))
	assert.False(t, IsRetryable(Verificationf(KindExpired, "stale")))
	assert.False(t, IsRetryable(Verificationf(KindSignatureInvalid, "bad")))
}
