package facebook

import (
	"context"
	"strings"

	"github.com/gatekit/gatekit/pkg/auth"
	"github.com/gatekit/gatekit/pkg/networking"
)

// CodeExchangeScheme is the authentication scheme for authorization codes.
const CodeExchangeScheme = "Facebook/Code"

// CodeExchangeVerifier validates OAuth2 authorization codes by exchanging
// them for an access token and fetching the profile that token belongs to.
// The exchange itself proves expiry and audience; the profile call supplies
// the user identity.
type CodeExchangeVerifier struct {
	graph       *graphAPI
	redirectURI string
}

// NewCodeExchangeVerifier builds a code verifier for the given Facebook app.
// redirectURI must match the one used when the code was issued.
func NewCodeExchangeVerifier(client networking.HTTPClient, appID, appSecret, redirectURI string, opts ...Option) (*CodeExchangeVerifier, error) {
	graph, err := newGraphAPI(client, appID, appSecret, opts)
	if err != nil {
		return nil, err
	}
	return &CodeExchangeVerifier{graph: graph, redirectURI: redirectURI}, nil
}

// CanHandle implements auth.TokenVerifier.
func (*CodeExchangeVerifier) CanHandle(hint string) bool {
	return strings.EqualFold(hint, ProviderName)
}

// Scheme implements auth.TokenVerifier.
func (*CodeExchangeVerifier) Scheme() string {
	return CodeExchangeScheme
}

// Verify implements auth.TokenVerifier.
func (v *CodeExchangeVerifier) Verify(ctx context.Context, code string) (*auth.Principal, error) {
	accessToken, err := v.graph.exchangeCode(ctx, code, v.redirectURI)
	if err != nil {
		return nil, err
	}

	profile, err := v.graph.profile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	principal, err := auth.NewPrincipal(profile.ID, profile.Email, ProviderName)
	if err != nil {
		return nil, auth.NewVerificationError(auth.KindRemoteEndpointError, "profile has no id", err)
	}
	principal.Token = accessToken
	return principal, nil
}

var _ auth.TokenVerifier = (*CodeExchangeVerifier)(nil)
