package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRequest is a RequestContext for driving the engine directly.
type fakeRequest struct {
	headers map[string]string
	secure  bool
	url     string
}

func (f *fakeRequest) Header(name string) string {
	return f.headers[name]
}

func (f *fakeRequest) IsSecure() bool {
	return f.secure
}

func (f *fakeRequest) URL() string {
	if f.url == "" {
		return "/api/resource"
	}
	return f.url
}

func secureRequest(headers map[string]string) *fakeRequest {
	return &fakeRequest{headers: headers, secure: true}
}

// fakeVerifier answers a fixed hint with a fixed result.
type fakeVerifier struct {
	hint      string
	scheme    string
	principal *Principal
	err       error
}

func (f *fakeVerifier) CanHandle(hint string) bool {
	return hint == f.hint
}

func (f *fakeVerifier) Verify(context.Context, string) (*Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.principal, nil
}

func (f *fakeVerifier) Scheme() string {
	if f.scheme == "" {
		return BearerScheme
	}
	return f.scheme
}

func testPrincipal(t *testing.T) *Principal {
	t.Helper()
	p, err := NewPrincipal("user-123", "user@example.com", "test")
	require.NoError(t, err)
	return p
}

func newTestEngine(t *testing.T, verifier TokenVerifier, platform PlatformIdentityProvider, policy PolicyResolver, opts ...EngineOption) *Engine {
	t.Helper()
	engine, err := NewEngine([]TokenVerifier{verifier}, platform, policy, opts...)
	require.NoError(t, err)
	return engine
}

func bearerHeaders(hint string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer some-token",
		ProviderHeader:  hint,
	}
}

func TestNewEngineValidation(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(nil, NoPlatform{}, nil)
	assert.Error(t, err, "zero verifiers must be rejected")

	_, err = NewEngine([]TokenVerifier{&fakeVerifier{hint: "test"}}, nil, nil)
	assert.Error(t, err, "nil platform must be rejected")
}

func TestInsecureTransport(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{hint: "test", principal: testPrincipal(t)}

	t.Run("hard reject even with valid token", func(t *testing.T) {
		t.Parallel()
		engine := newTestEngine(t, verifier, NoPlatform{}, RequireUser())

		d := engine.Decide(context.Background(), &fakeRequest{headers: bearerHeaders("test"), secure: false})
		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusUnauthorized, d.Status)
		assert.Equal(t, ReasonInsecure, d.Reason)
	})

	t.Run("hard reject even with optional policy", func(t *testing.T) {
		t.Parallel()
		engine := newTestEngine(t, verifier, NoPlatform{}, AllowAnonymous())

		d := engine.Decide(context.Background(), &fakeRequest{secure: false})
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonInsecure, d.Reason)
	})

	t.Run("dev mode allows plain HTTP", func(t *testing.T) {
		t.Parallel()
		engine := newTestEngine(t, verifier, NoPlatform{}, RequireUser(), WithDevMode())

		d := engine.Decide(context.Background(), &fakeRequest{headers: bearerHeaders("test"), secure: false})
		assert.True(t, d.Allowed)
		require.NotNil(t, d.Context)
		assert.Equal(t, "user-123", d.Context.Principal().ID)
	})
}

func TestPlatformSession(t *testing.T) {
	t.Parallel()

	t.Run("admin session satisfies admin policy", func(t *testing.T) {
		t.Parallel()
		platform := &StaticPlatform{Identity: &PlatformIdentity{ID: "admin-1", Email: "admin@example.com", Admin: true}}
		engine := newTestEngine(t, &fakeVerifier{hint: "test"}, platform,
			&StaticPolicy{Roles: NewRoleSet(RoleAdmin)})

		d := engine.Decide(context.Background(), secureRequest(nil))
		require.True(t, d.Allowed)
		assert.Equal(t, "admin-1", d.Context.Principal().ID)
		assert.Equal(t, PlatformScheme, d.Context.AuthenticationScheme())
		for _, role := range []Role{RoleUser, RoleAdmin, RoleOptional} {
			assert.True(t, d.Context.IsUserInRole(role), "missing role %s", role)
		}
	})

	t.Run("session wins over bearer token", func(t *testing.T) {
		t.Parallel()
		platform := &StaticPlatform{Identity: &PlatformIdentity{ID: "session-user"}}
		verifier := &fakeVerifier{hint: "test", principal: testPrincipal(t)}
		engine := newTestEngine(t, verifier, platform, RequireUser())

		d := engine.Decide(context.Background(), secureRequest(bearerHeaders("test")))
		require.True(t, d.Allowed)
		assert.Equal(t, "session-user", d.Context.Principal().ID)
	})

	t.Run("non-admin session rejected by admin policy", func(t *testing.T) {
		t.Parallel()
		platform := &StaticPlatform{Identity: &PlatformIdentity{ID: "plain-user"}}
		engine := newTestEngine(t, &fakeVerifier{hint: "test"}, platform,
			&StaticPolicy{Roles: NewRoleSet(RoleAdmin)})

		d := engine.Decide(context.Background(), secureRequest(nil))
		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusForbidden, d.Status)
		assert.Equal(t, ReasonNotAuthorized, d.Reason)
	})
}

func TestCredentialExtraction(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{hint: "test", principal: testPrincipal(t)}

	testCases := []struct {
		name         string
		headers      map[string]string
		policy       PolicyResolver
		expectAllow  bool
		expectReason string
	}{
		{
			name:         "missing header, user required",
			headers:      nil,
			policy:       RequireUser(),
			expectReason: ReasonNoCredentials,
		},
		{
			name:        "missing header, optional policy",
			headers:     nil,
			policy:      AllowAnonymous(),
			expectAllow: true,
		},
		{
			name:         "basic auth, user required",
			headers:      map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			policy:       RequireUser(),
			expectReason: ReasonNotBearer,
		},
		{
			name:        "basic auth, optional policy",
			headers:     map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			policy:      AllowAnonymous(),
			expectAllow: true,
		},
		{
			name:         "unknown provider hint, user required",
			headers:      bearerHeaders("unknown-provider"),
			policy:       RequireUser(),
			expectReason: ReasonNoSuchProvider,
		},
		{
			name:        "unknown provider hint, optional policy",
			headers:     bearerHeaders("unknown-provider"),
			policy:      AllowAnonymous(),
			expectAllow: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine := newTestEngine(t, verifier, NoPlatform{}, tc.policy)
			d := engine.Decide(context.Background(), secureRequest(tc.headers))

			if tc.expectAllow {
				require.True(t, d.Allowed)
				assert.True(t, d.Context.IsAnonymous())
				assert.True(t, d.Context.IsUserInRole(RoleOptional),
					"anonymous context must carry the OPTIONAL role")
				assert.False(t, d.Context.IsUserInRole(RoleUser))
				assert.Equal(t, UnauthenticatedScheme, d.Context.AuthenticationScheme())
				return
			}
			assert.False(t, d.Allowed)
			assert.Equal(t, http.StatusUnauthorized, d.Status)
			assert.Equal(t, tc.expectReason, d.Reason)
		})
	}
}

func TestVerificationOutcomes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		verifier     *fakeVerifier
		policy       PolicyResolver
		expectAllow  bool
		expectStatus int
		expectReason string
	}{
		{
			name:        "valid token, user required",
			verifier:    &fakeVerifier{hint: "test", principal: mustPrincipal("user-123")},
			policy:      RequireUser(),
			expectAllow: true,
		},
		{
			name:         "invalid signature",
			verifier:     &fakeVerifier{hint: "test", err: Verificationf(KindSignatureInvalid, "bad signature")},
			policy:       RequireUser(),
			expectStatus: http.StatusUnauthorized,
			expectReason: ReasonInvalidToken,
		},
		{
			name:         "expired token",
			verifier:     &fakeVerifier{hint: "test", err: Verificationf(KindExpired, "stale")},
			policy:       RequireUser(),
			expectStatus: http.StatusUnauthorized,
			expectReason: ReasonInvalidToken,
		},
		{
			name:         "provider unreachable",
			verifier:     &fakeVerifier{hint: "test", err: Verificationf(KindNetworkError, "timeout")},
			policy:       RequireUser(),
			expectStatus: http.StatusUnauthorized,
			expectReason: ReasonVerifyError,
		},
		{
			name:         "provider endpoint broken",
			verifier:     &fakeVerifier{hint: "test", err: Verificationf(KindRemoteEndpointError, "502")},
			policy:       RequireUser(),
			expectStatus: http.StatusUnauthorized,
			expectReason: ReasonVerifyError,
		},
		{
			name:        "invalid token, optional policy",
			verifier:    &fakeVerifier{hint: "test", err: Verificationf(KindSignatureInvalid, "bad signature")},
			policy:      AllowAnonymous(),
			expectAllow: true,
		},
		{
			name:         "valid token, admin required",
			verifier:     &fakeVerifier{hint: "test", principal: mustPrincipal("user-123")},
			policy:       &StaticPolicy{Roles: NewRoleSet(RoleAdmin)},
			expectStatus: http.StatusForbidden,
			expectReason: ReasonNotAuthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine := newTestEngine(t, tc.verifier, NoPlatform{}, tc.policy)
			d := engine.Decide(context.Background(), secureRequest(bearerHeaders("test")))

			if tc.expectAllow {
				require.True(t, d.Allowed)
				require.NotNil(t, d.Context)
				if tc.verifier.err == nil {
					assert.Equal(t, "user-123", d.Context.Principal().ID)
					assert.Equal(t, BearerScheme, d.Context.AuthenticationScheme())
				} else {
					assert.True(t, d.Context.IsAnonymous())
					assert.True(t, d.Context.IsUserInRole(RoleOptional))
				}
				return
			}
			assert.False(t, d.Allowed)
			assert.Equal(t, tc.expectStatus, d.Status)
			assert.Equal(t, tc.expectReason, d.Reason)
		})
	}
}

func TestLoginURLOnReject(t *testing.T) {
	t.Parallel()

	platform := &StaticPlatform{Login: "https://login.example.com"}
	engine := newTestEngine(t, &fakeVerifier{hint: "test"}, platform, RequireUser())

	t.Run("uses return URL header", func(t *testing.T) {
		t.Parallel()
		req := secureRequest(map[string]string{ReturnURLHeader: "/after-login"})
		d := engine.Decide(context.Background(), req)
		assert.False(t, d.Allowed)
		assert.Equal(t, "https://login.example.com?continue=/after-login", d.LoginURL)
	})

	t.Run("falls back to request URL", func(t *testing.T) {
		t.Parallel()
		d := engine.Decide(context.Background(), &fakeRequest{secure: true, url: "/api/things"})
		assert.False(t, d.Allowed)
		assert.Equal(t, "https://login.example.com?continue=/api/things", d.LoginURL)
	})

	t.Run("forbidden carries no login URL", func(t *testing.T) {
		t.Parallel()
		adminEngine := newTestEngine(t, &fakeVerifier{hint: "test", principal: mustPrincipal("u")},
			platform, &StaticPolicy{Roles: NewRoleSet(RoleAdmin)})
		d := adminEngine.Decide(context.Background(), secureRequest(bearerHeaders("test")))
		assert.Equal(t, http.StatusForbidden, d.Status)
		assert.Empty(t, d.LoginURL)
	})
}

func TestDecideIsIdempotent(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{hint: "test", principal: mustPrincipal("user-123")}
	engine := newTestEngine(t, verifier, NoPlatform{}, RequireUser())
	req := secureRequest(bearerHeaders("test"))

	first := engine.Decide(context.Background(), req)
	second := engine.Decide(context.Background(), req)

	require.True(t, first.Allowed)
	require.True(t, second.Allowed)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Reason, second.Reason)
	assert.True(t, first.Context.Principal().Equal(second.Context.Principal()))
	assert.Equal(t, first.Context.Roles(), second.Context.Roles())
}

func TestEmptyRequiredRolesReject(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{hint: "test", principal: mustPrincipal("user-123")}

	t.Run("verified caller", func(t *testing.T) {
		t.Parallel()
		engine := newTestEngine(t, verifier, NoPlatform{}, &StaticPolicy{Roles: NewRoleSet()})

		d := engine.Decide(context.Background(), secureRequest(bearerHeaders("test")))
		assert.False(t, d.Allowed, "empty required-role set must not allow")
		assert.Equal(t, http.StatusForbidden, d.Status)
		assert.Equal(t, ReasonNotAuthorized, d.Reason)
	})

	t.Run("platform session", func(t *testing.T) {
		t.Parallel()
		platform := &StaticPlatform{Identity: &PlatformIdentity{ID: "admin-1", Admin: true}}
		engine := newTestEngine(t, verifier, platform, &StaticPolicy{Roles: NewRoleSet()})

		d := engine.Decide(context.Background(), secureRequest(nil))
		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusForbidden, d.Status)
	})
}

func TestVerifierSelection(t *testing.T) {
	t.Parallel()

	t.Run("by provider hint", func(t *testing.T) {
		t.Parallel()
		google := &fakeVerifier{hint: "google", principal: mustPrincipal("google-user")}
		facebook := &fakeVerifier{hint: "facebook", principal: mustPrincipal("facebook-user")}
		engine, err := NewEngine([]TokenVerifier{google, facebook}, NoPlatform{}, RequireUser())
		require.NoError(t, err)

		d := engine.Decide(context.Background(), secureRequest(bearerHeaders("facebook")))
		require.True(t, d.Allowed)
		assert.Equal(t, "facebook-user", d.Context.Principal().ID)

		d = engine.Decide(context.Background(), secureRequest(bearerHeaders("google")))
		require.True(t, d.Allowed)
		assert.Equal(t, "google-user", d.Context.Principal().ID)
	})

	t.Run("scheme header narrows within one provider", func(t *testing.T) {
		t.Parallel()
		first := &fakeVerifier{hint: "facebook", scheme: "Facebook/SignedRequest", principal: mustPrincipal("signed-user")}
		second := &fakeVerifier{hint: "facebook", scheme: "Facebook/Code", principal: mustPrincipal("code-user")}
		engine, err := NewEngine([]TokenVerifier{first, second}, NoPlatform{}, RequireUser())
		require.NoError(t, err)

		headers := bearerHeaders("facebook")
		headers[SchemeHeader] = "facebook/code"

		d := engine.Decide(context.Background(), secureRequest(headers))
		require.True(t, d.Allowed)
		assert.Equal(t, "code-user", d.Context.Principal().ID)
	})

	t.Run("unmatched scheme header rejects", func(t *testing.T) {
		t.Parallel()
		verifier := &fakeVerifier{hint: "facebook", scheme: "Facebook/Code", principal: mustPrincipal("code-user")}
		engine := newTestEngine(t, verifier, NoPlatform{}, RequireUser())

		headers := bearerHeaders("facebook")
		headers[SchemeHeader] = "Facebook/SignedRequest"

		d := engine.Decide(context.Background(), secureRequest(headers))
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonNoSuchProvider, d.Reason)
	})
}

func mustPrincipal(id string) *Principal {
	p, err := NewPrincipal(id, "", "test")
	if err != nil {
		panic(err)
	}
	return p
}
