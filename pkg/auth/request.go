package auth

import (
	"net/http"
	"strings"
)

// RequestContext is the slice of an incoming request the engine needs to
// make a decision. It exists so the engine can be driven by transports other
// than net/http in tests and embeddings.
type RequestContext interface {
	// Header returns the first value of the named header, or "".
	Header(name string) string
	// IsSecure reports whether the request arrived over a secure channel.
	IsSecure() bool
	// URL returns the request target, used when building login return URLs.
	URL() string
}

// httpRequestContext adapts *http.Request to RequestContext.
type httpRequestContext struct {
	req *http.Request
}

// RequestFromHTTP wraps a standard request for the engine.
func RequestFromHTTP(r *http.Request) RequestContext {
	return &httpRequestContext{req: r}
}

func (h *httpRequestContext) Header(name string) string {
	return h.req.Header.Get(name)
}

// IsSecure trusts TLS on the connection itself or an https scheme asserted
// by a fronting proxy via X-Forwarded-Proto.
func (h *httpRequestContext) IsSecure() bool {
	if h.req.TLS != nil {
		return true
	}
	if strings.EqualFold(h.req.URL.Scheme, "https") {
		return true
	}
	return strings.EqualFold(h.req.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *httpRequestContext) URL() string {
	return h.req.URL.String()
}

// BearerToken extracts the bearer credential from an Authorization header
// value. The second return is false when the header does not carry the
// Bearer scheme.
func BearerToken(authorization string) (string, bool) {
	const prefix = "Bearer "
	if len(authorization) < len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(authorization[len(prefix):]), true
}
