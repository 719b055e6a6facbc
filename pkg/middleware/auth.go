package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Jis87-63/moz-digital-store/pkg/httputil"
)

type contextKeyType string

const claimsKey contextKeyType = "auth_claims"

// Claims are the token claims placed in the request context by Auth and
// OptionalAuth.
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is absent or malformed.
func BearerToken(r *http.Request) (token string, ok bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Auth rejects requests without a valid bearer token.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validate, false)
}

// OptionalAuth lets anonymous requests through but still rejects a token that
// is present and invalid, so a stale session is never silently downgraded to
// anonymous.
func OptionalAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validate, true)
}

func authenticate(validate TokenValidator, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" && optional {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				writeAuthError(w, "invalid authorization header format")
				return
			}

			claims, err := validate(r.Context(), token)
			if err != nil {
				writeAuthError(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// ContextWithClaims stores claims in ctx.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims stored by Auth or OptionalAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user id, or "" for anonymous
// requests.
func UserIDFromContext(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.UserID
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: message},
	})
}
