// Package auth provides the authentication and authorization decision engine:
// a per-request state machine that resolves a caller to a security context
// using either a platform session or one of several pluggable token
// verifiers, then checks the granted roles against the endpoint's required
// roles.
package auth

import (
	"encoding/json"
	"fmt"
)

// Principal is the verified identity of a caller, issued by an identity
// provider. Two principals are equal when their IDs are equal; all other
// fields are informational. A Principal is immutable once constructed.
type Principal struct {
	// ID is the opaque, stable identifier for the principal. Uniqueness is
	// scoped to the issuing provider. Always non-empty.
	ID string

	// Email is the email address, if the provider supplied one.
	Email string

	// Provider tags which identity provider issued this principal
	// (e.g. "google", "facebook", "platform").
	Provider string

	// Claims carries provider-specific payload such as token claims or
	// access-token metadata. Read-only after construction.
	Claims map[string]any

	// Token is the raw provider credential, kept for pass-through scenarios.
	// Redacted in String() and MarshalJSON() to prevent leakage.
	Token string
}

// NewPrincipal constructs a Principal. The id must be non-empty.
func NewPrincipal(id, email, provider string) (*Principal, error) {
	if id == "" {
		return nil, fmt.Errorf("principal id must not be empty")
	}
	return &Principal{ID: id, Email: email, Provider: provider}, nil
}

// Equal reports whether two principals represent the same identity.
// Equality is by ID only.
func (p *Principal) Equal(other *Principal) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.ID == other.ID
}

// String returns a representation with sensitive fields redacted, so a
// Principal can be logged safely.
func (p *Principal) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Principal{ID:%q, Provider:%q}", p.ID, p.Provider)
}

// MarshalJSON redacts the raw token during JSON serialization to prevent
// credential leakage in structured logs or API responses.
func (p *Principal) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	type safePrincipal struct {
		ID       string         `json:"id"`
		Email    string         `json:"email,omitempty"`
		Provider string         `json:"provider,omitempty"`
		Claims   map[string]any `json:"claims,omitempty"`
		Token    string         `json:"token,omitempty"`
	}

	token := p.Token
	if token != "" {
		token = "REDACTED"
	}

	return json.Marshal(&safePrincipal{
		ID:       p.ID,
		Email:    p.Email,
		Provider: p.Provider,
		Claims:   p.Claims,
		Token:    token,
	})
}
