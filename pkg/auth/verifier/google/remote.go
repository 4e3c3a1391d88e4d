package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gatekit/gatekit/pkg/auth"
	"github.com/gatekit/gatekit/pkg/clock"
	"github.com/gatekit/gatekit/pkg/networking"
)

// DefaultTokenInfoURL is Google's remote ID token introspection endpoint.
const DefaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"

// tokenInfo is the tokeninfo response shape. Numeric and boolean fields
// arrive as strings.
type tokenInfo struct {
	Issuer        string `json:"iss"`
	Subject       string `json:"sub"`
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	ExpiresAt     string `json:"exp"`
}

// RemoteVerifier validates Google ID tokens by asking the tokeninfo
// endpoint, trading a network round trip per request for zero local key
// handling.
type RemoteVerifier struct {
	client       networking.HTTPClient
	tokenInfoURL string
	clientIDs    map[string]struct{}
	clk          clock.Clock
	handleAny    bool
}

// RemoteOption configures a RemoteVerifier.
type RemoteOption func(*RemoteVerifier)

// WithTokenInfoURL overrides the introspection endpoint, mainly for tests.
func WithTokenInfoURL(url string) RemoteOption {
	return func(v *RemoteVerifier) {
		v.tokenInfoURL = url
	}
}

// WithRemoteClock injects the time source used for expiry checks.
func WithRemoteClock(c clock.Clock) RemoteOption {
	return func(v *RemoteVerifier) {
		v.clk = c
	}
}

// RemoteAsDefault makes this verifier also claim requests that carry no
// provider hint.
func RemoteAsDefault() RemoteOption {
	return func(v *RemoteVerifier) {
		v.handleAny = true
	}
}

// NewRemoteVerifier builds a remote verifier trusting tokens issued to any
// of the given OAuth2 client IDs.
func NewRemoteVerifier(client networking.HTTPClient, clientIDs []string, opts ...RemoteOption) (*RemoteVerifier, error) {
	if client == nil {
		return nil, errors.New("HTTP client is required")
	}
	if len(clientIDs) == 0 {
		return nil, errors.New("at least one trusted client ID is required")
	}
	trusted := make(map[string]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		trusted[id] = struct{}{}
	}
	v := &RemoteVerifier{
		client:       client,
		tokenInfoURL: DefaultTokenInfoURL,
		clientIDs:    trusted,
		clk:          clock.System{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// CanHandle implements auth.TokenVerifier.
func (v *RemoteVerifier) CanHandle(hint string) bool {
	if hint == "" {
		return v.handleAny
	}
	return strings.EqualFold(hint, ProviderName)
}

// Scheme implements auth.TokenVerifier.
func (*RemoteVerifier) Scheme() string {
	return auth.BearerScheme
}

// Verify implements auth.TokenVerifier. The endpoint answers 4xx for tokens
// it rejects, which counts as an invalid token rather than endpoint trouble.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*auth.Principal, error) {
	requestURL := v.tokenInfoURL + "?id_token=" + url.QueryEscape(token)
	result, err := networking.FetchJSON[tokenInfo](ctx, v.client, requestURL)
	if err != nil {
		return nil, classifyFetchError(err)
	}
	info := result.Data

	if err := v.validate(info); err != nil {
		return nil, err
	}

	principal, err := auth.NewPrincipal(info.Subject, info.Email, ProviderName)
	if err != nil {
		return nil, auth.NewVerificationError(auth.KindMalformedToken, "tokeninfo response has no subject", err)
	}
	principal.Token = token
	return principal, nil
}

func (v *RemoteVerifier) validate(info tokenInfo) error {
	trusted := false
	for _, iss := range trustedIssuers {
		if info.Issuer == iss {
			trusted = true
			break
		}
	}
	if !trusted {
		return auth.Verificationf(auth.KindIssuerMismatch, "untrusted issuer %q", info.Issuer)
	}

	// The aud field may list several client IDs; every one must be trusted.
	for _, aud := range strings.Fields(strings.ReplaceAll(info.Audience, ",", " ")) {
		if _, ok := v.clientIDs[aud]; !ok {
			return auth.Verificationf(auth.KindAudienceMismatch, "token audience includes untrusted client")
		}
	}
	if info.Audience == "" {
		return auth.Verificationf(auth.KindAudienceMismatch, "token has no audience")
	}

	exp, err := strconv.ParseInt(info.ExpiresAt, 10, 64)
	if err != nil {
		return auth.NewVerificationError(auth.KindMalformedToken, "tokeninfo expiry is not a number", err)
	}
	if time.Unix(exp, 0).Before(v.clk.Now()) {
		return auth.Verificationf(auth.KindExpired, "token is expired")
	}

	if info.EmailVerified != "true" {
		return auth.Verificationf(auth.KindUnverifiedEmail, "account email is not verified")
	}
	return nil
}

var _ auth.TokenVerifier = (*RemoteVerifier)(nil)

// classifyFetchError maps transport failures to failure kinds. A 4xx from
// the endpoint means the endpoint examined and rejected the token.
func classifyFetchError(err error) error {
	var httpErr *networking.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			return auth.NewVerificationError(auth.KindMalformedToken, "endpoint rejected the token", err)
		}
		return auth.NewVerificationError(auth.KindRemoteEndpointError,
			fmt.Sprintf("endpoint answered %d", httpErr.StatusCode), err)
	}
	return auth.NewVerificationError(auth.KindNetworkError, "could not reach verification endpoint", err)
}
