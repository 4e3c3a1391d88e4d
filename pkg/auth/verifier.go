package auth

import "context"

// Header names used to steer the authentication decision. The provider
// header selects which verifier inspects the credential, the scheme header
// narrows that choice to the verifier implementing the named scheme, and the
// return-URL header is echoed into login URLs built for rejected requests.
const (
	ProviderHeader  = "X-Authorization-Provider"
	SchemeHeader    = "X-Authorization-Scheme"
	ReturnURLHeader = "X-Login-Return-Url"
	// LoginURLHeader is set on reject responses that know where the caller can
	// go to obtain credentials.
	LoginURLHeader = "X-Login-URL"
)

// Authentication scheme names reported on the SecurityContext.
const (
	// BearerScheme marks callers authenticated with an OAuth2 bearer token.
	BearerScheme = "OAuth2.0 Bearer"
	// PlatformScheme marks callers authenticated by the hosting platform.
	PlatformScheme = "Platform"
	// UnauthenticatedScheme marks anonymous callers admitted by an optional
	// policy.
	UnauthenticatedScheme = "Unauthenticated"
)

// TokenVerifier validates a single credential format from a single provider.
// Implementations must be safe for concurrent use and must honor context
// cancellation on any network call.
type TokenVerifier interface {
	// CanHandle reports whether this verifier understands credentials tagged
	// with the given provider hint. Matching is case-insensitive and an empty
	// hint selects the default verifier.
	CanHandle(hint string) bool

	// Verify validates the raw credential and returns the principal it proves.
	// Failures are returned as *VerificationError carrying a FailureKind.
	Verify(ctx context.Context, token string) (*Principal, error)

	// Scheme names the authentication scheme this verifier implements.
	Scheme() string
}

// RoleGranter is an optional extension for verifiers whose successful
// verification implies roles beyond USER, such as a platform admin check.
type RoleGranter interface {
	ExtraRoles(ctx context.Context, p *Principal) RoleSet
}
