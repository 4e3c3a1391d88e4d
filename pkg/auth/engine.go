package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gatekit/gatekit/pkg/logger"
)

// Canonical reject reasons. These are the only failure texts ever sent to
// callers; everything more specific stays in server-side logs.
const (
	ReasonInsecure       = "Request insecure"
	ReasonNoCredentials  = "No credentials provided"
	ReasonNotBearer      = "Not Bearer Authorization"
	ReasonInvalidToken   = "Invalid OAuth2.0 token"
	ReasonVerifyError    = "Error verifying OAuth2.0 token"
	ReasonNotAuthorized  = "Not Authorized"
	ReasonNoSuchProvider = "Unknown authorization provider"
	ReasonPolicyError    = "Authorization policy unavailable"
)

// Decision is the outcome of running the engine against one request.
type Decision struct {
	// Allowed reports whether the request may proceed. When true, Context is
	// always non-nil.
	Allowed bool
	// Context carries the authenticated (or anonymous) caller on allow.
	Context *SecurityContext
	// Status is the HTTP status to answer with on reject.
	Status int
	// Reason is the canonical caller-visible reject reason.
	Reason string
	// LoginURL, when non-empty, tells the caller where to obtain credentials.
	LoginURL string
}

// Engine runs the ordered authentication checks for each request and
// produces an allow or reject decision. It is safe for concurrent use.
type Engine struct {
	verifiers []TokenVerifier
	platform  PlatformIdentityProvider
	policy    PolicyResolver
	allowHTTP bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDevMode disables the secure-transport check so the engine can run
// behind plain HTTP during local development. Never enable in production.
func WithDevMode() EngineOption {
	return func(e *Engine) {
		e.allowHTTP = true
	}
}

// NewEngine builds a decision engine. At least one verifier and a platform
// provider are required; deployments without a platform session pass
// NoPlatform. A nil policy defaults to requiring an authenticated user.
func NewEngine(verifiers []TokenVerifier, platform PlatformIdentityProvider, policy PolicyResolver, opts ...EngineOption) (*Engine, error) {
	if len(verifiers) == 0 {
		return nil, fmt.Errorf("at least one token verifier is required")
	}
	if platform == nil {
		return nil, fmt.Errorf("platform identity provider is required (use NoPlatform)")
	}
	if policy == nil {
		policy = RequireUser()
	}
	e := &Engine{
		verifiers: verifiers,
		platform:  platform,
		policy:    policy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Decide runs the full check sequence for one request.
func (e *Engine) Decide(ctx context.Context, req RequestContext) Decision {
	required, err := e.policy.RequiredRoles(ctx, req)
	if err != nil {
		logger.Errorf("resolving required roles: %v", err)
		return e.reject(ctx, req, http.StatusForbidden, ReasonPolicyError)
	}
	optional := required.Contains(RoleOptional)

	// Insecure transport is a hard reject. Optional authentication softens
	// credential problems, not channel problems.
	secure := req.IsSecure() || e.allowHTTP
	if !secure {
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonInsecure)
	}

	// A platform session wins over any token in the request.
	identity, err := e.platform.CurrentIdentity(ctx, req)
	if err != nil {
		logger.Errorf("platform identity lookup: %v", err)
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonVerifyError)
	}
	if identity != nil {
		return e.allowPlatform(ctx, req, identity, required, secure)
	}

	authorization := req.Header("Authorization")
	if authorization == "" {
		if optional {
			return e.allowAnonymous(secure)
		}
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonNoCredentials)
	}

	token, ok := BearerToken(authorization)
	if !ok || token == "" {
		if optional {
			return e.allowAnonymous(secure)
		}
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonNotBearer)
	}

	hint := req.Header(ProviderHeader)
	scheme := req.Header(SchemeHeader)
	verifier := e.selectVerifier(hint, scheme)
	if verifier == nil {
		logger.Warnf("no verifier for provider hint %q, scheme %q", hint, scheme)
		if optional {
			return e.allowAnonymous(secure)
		}
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonNoSuchProvider)
	}

	principal, err := verifier.Verify(ctx, token)
	if err != nil {
		kind := KindOf(err)
		recordVerificationFailure(hint, kind)
		logger.Infow("token verification failed",
			"provider", hint, "kind", string(kind), "retryable", IsRetryable(err), "error", err.Error())
		if optional {
			return e.allowAnonymous(secure)
		}
		reason := ReasonInvalidToken
		if kind == KindRemoteEndpointError || kind == KindNetworkError {
			reason = ReasonVerifyError
		}
		return e.reject(ctx, req, http.StatusUnauthorized, reason)
	}

	roles := NewRoleSet(RoleUser, RoleOptional)
	if granter, ok := verifier.(RoleGranter); ok {
		roles = roles.Union(granter.ExtraRoles(ctx, principal))
	}
	sc, err := NewSecurityContext(principal, roles, verifier.Scheme(), secure)
	if err != nil {
		logger.Errorf("building security context: %v", err)
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonVerifyError)
	}
	return e.authorize(ctx, req, sc, required)
}

// selectVerifier returns the first verifier claiming the hint. An empty hint
// falls through to the first verifier that accepts empty hints, which by
// convention is the default provider. A non-empty scheme narrows the match
// to the verifier implementing that scheme, which distinguishes providers
// that register several credential formats under one hint.
func (e *Engine) selectVerifier(hint, scheme string) TokenVerifier {
	for _, v := range e.verifiers {
		if !v.CanHandle(hint) {
			continue
		}
		if scheme != "" && !strings.EqualFold(v.Scheme(), scheme) {
			continue
		}
		return v
	}
	return nil
}

func (e *Engine) allowPlatform(ctx context.Context, req RequestContext, identity *PlatformIdentity, required RoleSet, secure bool) Decision {
	principal, err := NewPrincipal(identity.ID, identity.Email, "platform")
	if err != nil {
		logger.Errorf("platform identity is unusable: %v", err)
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonVerifyError)
	}
	roles := NewRoleSet(RoleUser, RoleOptional)
	if identity.Admin {
		roles = roles.Union(NewRoleSet(RoleAdmin))
	}
	sc, err := NewSecurityContext(principal, roles, PlatformScheme, secure)
	if err != nil {
		return e.reject(ctx, req, http.StatusUnauthorized, ReasonVerifyError)
	}
	return e.authorize(ctx, req, sc, required)
}

// authorize applies the role intersection check to an authenticated context.
// Granted roles always include OPTIONAL, so an optional policy admits any
// authenticated caller. An empty required set matches nothing and rejects.
func (e *Engine) authorize(ctx context.Context, req RequestContext, sc *SecurityContext, required RoleSet) Decision {
	if !sc.Roles().Intersects(required) {
		logger.Infow("authenticated caller lacks required role",
			"principal", sc.Principal().String(), "required", required.String())
		return e.reject(ctx, req, http.StatusForbidden, ReasonNotAuthorized)
	}
	recordDecision("allow", sc.AuthenticationScheme())
	return Decision{Allowed: true, Context: sc}
}

func (e *Engine) allowAnonymous(secure bool) Decision {
	recordDecision("allow_anonymous", UnauthenticatedScheme)
	return Decision{Allowed: true, Context: AnonymousContext(UnauthenticatedScheme, secure)}
}

func (e *Engine) reject(ctx context.Context, req RequestContext, status int, reason string) Decision {
	recordDecision("reject", reason)
	d := Decision{Status: status, Reason: reason}
	if status == http.StatusUnauthorized {
		returnURL := req.Header(ReturnURLHeader)
		if returnURL == "" {
			returnURL = req.URL()
		}
		login, err := e.platform.LoginURL(ctx, returnURL)
		if err != nil {
			logger.Warnf("building login URL: %v", err)
		} else {
			d.LoginURL = login
		}
	}
	return d
}
