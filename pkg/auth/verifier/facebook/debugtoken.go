package facebook

import (
	"context"
	"net/url"
	"strings"

	"github.com/gatekit/gatekit/pkg/auth"
	"github.com/gatekit/gatekit/pkg/clock"
	"github.com/gatekit/gatekit/pkg/networking"
)

// DebugTokenScheme is the authentication scheme for inspected access tokens.
const DebugTokenScheme = "Facebook/InspectToken"

// debugTokenResponse is the debug_token endpoint response shape.
type debugTokenResponse struct {
	Data struct {
		AppID     string `json:"app_id"`
		IsValid   bool   `json:"is_valid"`
		ExpiresAt int64  `json:"expires_at"`
		UserID    string `json:"user_id"`
	} `json:"data"`
}

// DebugTokenVerifier validates Facebook user access tokens by asking the
// debug_token endpoint, authenticated with the app credentials.
type DebugTokenVerifier struct {
	graph *graphAPI
	clk   clock.Clock
}

// NewDebugTokenVerifier builds an access token verifier for the given
// Facebook app.
func NewDebugTokenVerifier(client networking.HTTPClient, appID, appSecret string, clk clock.Clock, opts ...Option) (*DebugTokenVerifier, error) {
	graph, err := newGraphAPI(client, appID, appSecret, opts)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &DebugTokenVerifier{graph: graph, clk: clk}, nil
}

// CanHandle implements auth.TokenVerifier.
func (*DebugTokenVerifier) CanHandle(hint string) bool {
	return strings.EqualFold(hint, ProviderName)
}

// Scheme implements auth.TokenVerifier.
func (*DebugTokenVerifier) Scheme() string {
	return DebugTokenScheme
}

// Verify implements auth.TokenVerifier.
func (v *DebugTokenVerifier) Verify(ctx context.Context, token string) (*auth.Principal, error) {
	query := url.Values{
		"input_token":  {token},
		"access_token": {v.graph.appAccessToken()},
	}
	resp, err := fetch[debugTokenResponse](ctx, v.graph, "/debug_token", query)
	if err != nil {
		return nil, err
	}
	data := resp.Data

	// Token issued for another application.
	if data.AppID != v.graph.appID {
		return nil, auth.Verificationf(auth.KindAudienceMismatch, "token belongs to app %q", data.AppID)
	}
	if v.clk.Now().Unix() >= data.ExpiresAt {
		return nil, auth.Verificationf(auth.KindExpired, "token expired at %d", data.ExpiresAt)
	}
	if !data.IsValid {
		return nil, auth.Verificationf(auth.KindMalformedToken, "endpoint reports token invalid")
	}
	if data.UserID == "" {
		return nil, auth.Verificationf(auth.KindMalformedToken, "endpoint returned no user_id")
	}

	principal, err := auth.NewPrincipal(data.UserID, "", ProviderName)
	if err != nil {
		return nil, auth.NewVerificationError(auth.KindMalformedToken, "unusable user_id", err)
	}
	principal.Token = token
	return principal, nil
}

var _ auth.TokenVerifier = (*DebugTokenVerifier)(nil)
