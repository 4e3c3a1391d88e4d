package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrincipal(t *testing.T) {
	t.Parallel()

	p, err := NewPrincipal("user-123", "user@example.com", "google")
	require.NoError(t, err)
	assert.Equal(t, "user-123", p.ID)
	assert.Equal(t, "google", p.Provider)

	_, err = NewPrincipal("", "user@example.com", "google")
	assert.Error(t, err, "empty ID must be rejected")
}

func TestPrincipalEqual(t *testing.T) {
	t.Parallel()

	a := mustPrincipal("user-123")
	b := mustPrincipal("user-123")
	b.Email = "other@example.com"
	c := mustPrincipal("user-456")

	// Comparison is by ID only.
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestPrincipalRedaction(t *testing.T) {
	t.Parallel()

	p := mustPrincipal("user-123")
	p.Token = "super-secret-token"

	assert.NotContains(t, p.String(), "super-secret-token")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret-token")
	assert.Contains(t, string(out), "REDACTED")
}
