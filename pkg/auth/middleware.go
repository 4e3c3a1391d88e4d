package auth

import "net/http"

// Middleware wraps an http.Handler with the decision engine. Allowed
// requests proceed with the SecurityContext placed on the request context;
// rejected requests are answered immediately with the canonical reason and,
// when one is known, an X-Login-URL header.
func Middleware(engine *Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := engine.Decide(r.Context(), RequestFromHTTP(r))
			if !decision.Allowed {
				if decision.LoginURL != "" {
					w.Header().Set(LoginURLHeader, decision.LoginURL)
				}
				http.Error(w, decision.Reason, decision.Status)
				return
			}
			ctx := WithSecurityContext(r.Context(), decision.Context)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
