// Package keys manages provider public key sets fetched from JWKS
// endpoints. Key sets refresh in the background on a single goroutine while
// any number of request goroutines read them.
package keys

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// registrationTimeout bounds how long a first use may block on fetching a
// key set before requests start failing fast.
const registrationTimeout = 5 * time.Second

// Manager caches JWKS documents per URL with automatic refresh. It is safe
// for concurrent use; URL registration happens lazily on first lookup so
// construction never touches the network.
type Manager struct {
	cache *jwk.Cache

	mu         sync.Mutex
	registered map[string]error
}

// NewManager builds a key manager around the given HTTP client. The client
// should be locked down to HTTPS-only public endpoints.
func NewManager(ctx context.Context, client *http.Client) (*Manager, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(client)))
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}
	return &Manager{
		cache:      cache,
		registered: make(map[string]error),
	}, nil
}

// ensureRegistered registers the JWKS URL with the cache on first use. A
// failed registration is remembered so later lookups fail fast instead of
// hammering a broken endpoint.
func (m *Manager) ensureRegistered(ctx context.Context, jwksURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.registered[jwksURL]; ok {
		return err
	}

	registrationCtx, cancel := context.WithTimeout(ctx, registrationTimeout)
	defer cancel()

	err := m.cache.Register(registrationCtx, jwksURL)
	if err != nil {
		err = fmt.Errorf("failed to register JWKS URL %s: %w", jwksURL, err)
	}
	m.registered[jwksURL] = err
	return err
}

// Key returns the raw public key with the given key ID from the JWKS at
// jwksURL.
func (m *Manager) Key(ctx context.Context, jwksURL, kid string) (any, error) {
	if err := m.ensureRegistered(ctx, jwksURL); err != nil {
		return nil, err
	}

	keySet, err := m.cache.Lookup(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup JWKS: %w", err)
	}

	key, found := keySet.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, fmt.Errorf("failed to export raw key: %w", err)
	}
	return rawKey, nil
}

// Keyfunc adapts the manager to golang-jwt's key resolution callback for
// RSA-signed tokens from the given JWKS URL.
func (m *Manager) Keyfunc(ctx context.Context, jwksURL string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token header missing kid")
		}
		return m.Key(ctx, jwksURL, kid)
	}
}
