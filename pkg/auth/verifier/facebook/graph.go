// Package facebook verifies Facebook credentials: signed requests produced
// by the JavaScript SDK, user access tokens via the debug_token endpoint,
// and OAuth2 authorization codes via the code exchange flow.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gatekit/gatekit/pkg/auth"
	"github.com/gatekit/gatekit/pkg/networking"
)

// ProviderName is the provider hint this package answers to.
const ProviderName = "facebook"

// DefaultGraphURL is the Facebook Graph API base.
const DefaultGraphURL = "https://graph.facebook.com"

// graphErrorBody is the error envelope the Graph API wraps failures in.
type graphErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// graphAPI is the shared Graph API client for the verifiers in this
// package. All calls go through the locked-down HTTP client handed in at
// construction time.
type graphAPI struct {
	client    networking.HTTPClient
	baseURL   string
	appID     string
	appSecret string
}

// Option configures the Graph API access shared by this package's verifiers.
type Option func(*graphAPI)

// WithGraphURL overrides the Graph API base, mainly for tests.
func WithGraphURL(url string) Option {
	return func(g *graphAPI) {
		g.baseURL = url
	}
}

func newGraphAPI(client networking.HTTPClient, appID, appSecret string, opts []Option) (*graphAPI, error) {
	if client == nil {
		return nil, errors.New("HTTP client is required")
	}
	if appID == "" || appSecret == "" {
		return nil, errors.New("app ID and app secret are required")
	}
	g := &graphAPI{
		client:    client,
		baseURL:   DefaultGraphURL,
		appID:     appID,
		appSecret: appSecret,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// graphErrorHandler turns Graph API error envelopes into classified
// failures. Graph answers 400 for tokens and codes it rejects.
func graphErrorHandler(resp *http.Response, body []byte) error {
	var envelope graphErrorBody
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return nil
	}
	kind := auth.KindRemoteEndpointError
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		kind = auth.KindMalformedToken
	}
	return auth.Verificationf(kind, "graph API error %d (%s): %s",
		envelope.Error.Code, envelope.Error.Type, envelope.Error.Message)
}

// fetch performs a GET against the Graph API and classifies failures.
func fetch[T any](ctx context.Context, g *graphAPI, path string, query url.Values) (T, error) {
	var zero T
	requestURL := g.baseURL + path + "?" + query.Encode()
	result, err := networking.FetchJSON[T](ctx, g.client, requestURL,
		networking.WithErrorHandler(graphErrorHandler))
	if err != nil {
		return zero, classifyGraphError(err)
	}
	return result.Data, nil
}

// classifyGraphError wraps transport-level failures that the error handler
// did not already classify.
func classifyGraphError(err error) error {
	var verr *auth.VerificationError
	if errors.As(err, &verr) {
		return err
	}
	var httpErr *networking.HTTPError
	if errors.As(err, &httpErr) {
		return auth.NewVerificationError(auth.KindRemoteEndpointError,
			fmt.Sprintf("graph API answered %d", httpErr.StatusCode), err)
	}
	return auth.NewVerificationError(auth.KindNetworkError, "could not reach graph API", err)
}

// appAccessToken is the app-level credential for the debug_token endpoint.
func (g *graphAPI) appAccessToken() string {
	return g.appID + "|" + g.appSecret
}

// userProfile is the subset of /me this package needs.
type userProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// profile fetches the profile of the user the access token belongs to.
func (g *graphAPI) profile(ctx context.Context, accessToken string) (*userProfile, error) {
	query := url.Values{
		"fields":       {"id,email,name"},
		"access_token": {accessToken},
	}
	p, err := fetch[userProfile](ctx, g, "/me", query)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, auth.Verificationf(auth.KindRemoteEndpointError, "profile response has no id")
	}
	return &p, nil
}

// accessTokenResponse is the code exchange response shape.
type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// exchangeCode trades an OAuth2 authorization code for a user access token.
// An empty redirectURI selects the client_credentials form used for codes
// embedded in signed requests.
func (g *graphAPI) exchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	query := url.Values{
		"client_id":     {g.appID},
		"client_secret": {g.appSecret},
		"code":          {code},
	}
	if redirectURI != "" {
		query.Set("redirect_uri", redirectURI)
	} else {
		query.Set("grant_type", "client_credentials")
	}
	resp, err := fetch[accessTokenResponse](ctx, g, "/oauth/access_token", query)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", auth.Verificationf(auth.KindRemoteEndpointError, "code exchange returned no access token")
	}
	return resp.AccessToken, nil
}
