package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{hint: "test", principal: mustPrincipal("user-123")}
	platform := &StaticPlatform{Login: "https://login.example.com"}
	engine, err := NewEngine([]TokenVerifier{verifier}, platform, RequireUser())
	require.NoError(t, err)

	var captured *SecurityContext
	handler := Middleware(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, ok := SecurityContextFromContext(r.Context())
		require.True(t, ok, "security context must be on the request context")
		captured = sc
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed request reaches handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "https://api.example.com/resource", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		req.Header.Set(ProviderHeader, "test")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, "user-123", captured.Principal().ID)
	})

	t.Run("rejected request answered with reason and login URL", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "https://api.example.com/resource", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), ReasonNoCredentials)
		assert.NotEmpty(t, rec.Header().Get(LoginURLHeader))
	})

	t.Run("plain HTTP rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://api.example.com/resource", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		req.Header.Set(ProviderHeader, "test")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), ReasonInsecure)
	})
}
