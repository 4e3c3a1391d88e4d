// Package google verifies Google OAuth2 ID tokens, either locally against
// Google's published signing keys or remotely through the tokeninfo
// endpoint.
package google

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatekit/gatekit/pkg/auth"
	"github.com/gatekit/gatekit/pkg/auth/keys"
	"github.com/gatekit/gatekit/pkg/clock"
)

const (
	// ProviderName is the provider hint this package answers to.
	ProviderName = "google"

	// DefaultJWKSURL is Google's published signing key set.
	DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	// DefaultClockSkew is the tolerated clock difference for the expiry and
	// issued-at checks.
	DefaultClockSkew = 30 * time.Second
)

// trustedIssuers are the issuer values Google puts in ID tokens.
var trustedIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// SignatureVerifier validates Google ID tokens locally: RS256 signature
// against the cached JWKS, then audience, issuer, expiry, and email
// verification checks.
type SignatureVerifier struct {
	keyManager *keys.Manager
	jwksURL    string
	clientID   string
	clk        clock.Clock
	skew       time.Duration
	parser     *jwt.Parser
	handleAny  bool
}

// SignatureOption configures a SignatureVerifier.
type SignatureOption func(*SignatureVerifier)

// WithJWKSURL overrides the key set location, mainly for tests.
func WithJWKSURL(url string) SignatureOption {
	return func(v *SignatureVerifier) {
		v.jwksURL = url
	}
}

// WithClock injects the time source used for expiry checks.
func WithClock(c clock.Clock) SignatureOption {
	return func(v *SignatureVerifier) {
		v.clk = c
	}
}

// WithClockSkew overrides the tolerated clock difference between this host
// and the token issuer.
func WithClockSkew(d time.Duration) SignatureOption {
	return func(v *SignatureVerifier) {
		v.skew = d
	}
}

// AsDefault makes this verifier also claim requests that carry no provider
// hint.
func AsDefault() SignatureOption {
	return func(v *SignatureVerifier) {
		v.handleAny = true
	}
}

// NewSignatureVerifier builds a local ID token verifier for the given OAuth2
// client ID.
func NewSignatureVerifier(keyManager *keys.Manager, clientID string, opts ...SignatureOption) (*SignatureVerifier, error) {
	if keyManager == nil {
		return nil, errors.New("key manager is required")
	}
	if clientID == "" {
		return nil, errors.New("client ID is required")
	}
	v := &SignatureVerifier{
		keyManager: keyManager,
		jwksURL:    DefaultJWKSURL,
		clientID:   clientID,
		clk:        clock.System{},
		skew:       DefaultClockSkew,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithTimeFunc(v.clk.Now),
		jwt.WithLeeway(v.skew),
		jwt.WithExpirationRequired(),
	)
	return v, nil
}

// CanHandle implements auth.TokenVerifier.
func (v *SignatureVerifier) CanHandle(hint string) bool {
	if hint == "" {
		return v.handleAny
	}
	return strings.EqualFold(hint, ProviderName)
}

// Scheme implements auth.TokenVerifier.
func (*SignatureVerifier) Scheme() string {
	return auth.BearerScheme
}

// Verify implements auth.TokenVerifier.
func (v *SignatureVerifier) Verify(ctx context.Context, token string) (*auth.Principal, error) {
	parsed, err := v.parser.Parse(token, v.keyManager.Keyfunc(ctx, v.jwksURL))
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, auth.Verificationf(auth.KindMalformedToken, "token claims are not a JSON object")
	}
	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}

	sub, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	principal, err := auth.NewPrincipal(sub, email, ProviderName)
	if err != nil {
		return nil, auth.NewVerificationError(auth.KindMalformedToken, "token has no subject", err)
	}
	principal.Claims = map[string]any(claims)
	principal.Token = token
	return principal, nil
}

func (v *SignatureVerifier) validateClaims(claims jwt.MapClaims) error {
	issuer, err := claims.GetIssuer()
	if err != nil {
		return auth.NewVerificationError(auth.KindIssuerMismatch, "token has no issuer", err)
	}
	trusted := false
	for _, iss := range trustedIssuers {
		if strings.TrimSpace(issuer) == iss {
			trusted = true
			break
		}
	}
	if !trusted {
		return auth.Verificationf(auth.KindIssuerMismatch, "untrusted issuer %q", issuer)
	}

	audiences, err := claims.GetAudience()
	if err != nil {
		return auth.NewVerificationError(auth.KindAudienceMismatch, "token has no audience", err)
	}
	found := false
	for _, aud := range audiences {
		if aud == v.clientID {
			found = true
			break
		}
	}
	if !found {
		return auth.Verificationf(auth.KindAudienceMismatch, "token audience does not include this client")
	}

	if verified, ok := claims["email_verified"].(bool); !ok || !verified {
		return auth.Verificationf(auth.KindUnverifiedEmail, "account email is not verified")
	}
	return nil
}

var _ auth.TokenVerifier = (*SignatureVerifier)(nil)

// classifyParseError maps golang-jwt sentinel errors to failure kinds. Key
// lookup failures arrive unwrapped from the keyfunc and count as network
// trouble.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return auth.NewVerificationError(auth.KindMalformedToken, "token is not a valid JWT", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return auth.NewVerificationError(auth.KindSignatureInvalid, "token signature check failed", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return auth.NewVerificationError(auth.KindExpired, "token is expired", err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return auth.NewVerificationError(auth.KindExpired, "token is not valid yet", err)
	default:
		return auth.NewVerificationError(auth.KindNetworkError, "could not verify token signature", err)
	}
}
