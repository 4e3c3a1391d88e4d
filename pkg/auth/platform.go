package auth

import "context"

// PlatformIdentity is a user already authenticated by the hosting platform,
// for example through a platform session cookie. When present it wins over
// any token in the request.
type PlatformIdentity struct {
	ID    string
	Email string
	Admin bool
}

// PlatformIdentityProvider exposes the hosting platform's own notion of the
// current user. Implementations return (nil, nil) when no platform session
// exists; errors are reserved for lookups that genuinely failed.
type PlatformIdentityProvider interface {
	CurrentIdentity(ctx context.Context, req RequestContext) (*PlatformIdentity, error)
	// LoginURL builds the platform login page with a post-login redirect back
	// to returnURL. An empty result means the platform has no login flow.
	LoginURL(ctx context.Context, returnURL string) (string, error)
}

// NoPlatform is a PlatformIdentityProvider for deployments with no hosting
// platform session. It never identifies anyone and offers no login URL.
type NoPlatform struct{}

func (NoPlatform) CurrentIdentity(context.Context, RequestContext) (*PlatformIdentity, error) {
	return nil, nil
}

func (NoPlatform) LoginURL(context.Context, string) (string, error) {
	return "", nil
}

// StaticPlatform is a PlatformIdentityProvider backed by a fixed identity,
// useful for tests and local development.
type StaticPlatform struct {
	Identity *PlatformIdentity
	Login    string
}

func (s *StaticPlatform) CurrentIdentity(context.Context, RequestContext) (*PlatformIdentity, error) {
	return s.Identity, nil
}

func (s *StaticPlatform) LoginURL(_ context.Context, returnURL string) (string, error) {
	if s.Login == "" || returnURL == "" {
		return s.Login, nil
	}
	return s.Login + "?continue=" + returnURL, nil
}
