package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/qwiksale/verify-api/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// OptionalAuth injects claims from a valid Bearer JWT into the context and
// otherwise passes the request through untouched. OTP endpoints are public;
// a session only serves as an identifier fallback, never as a gate.
func OptionalAuth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider != nil {
				if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
					if claims, err := provider.Verify(token); err == nil {
						r = r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
