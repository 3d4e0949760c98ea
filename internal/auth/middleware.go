package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// DefaultTokenHeader is the request header the middleware reads the token from.
const DefaultTokenHeader = "X-Auth-Token"

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the claims stored under it.
type contextKey string

const claimsKey contextKey = "claims"

// Causes reported in the "error" field of a 401 body.
const (
	CauseTokenMissing = "token_missing"
	CauseTokenExpired = "token_expired"
	CauseTokenInvalid = "token_invalid"
)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from the given header (DefaultTokenHeader when empty).
// If that header is absent it also accepts "Authorization: Bearer <token>".
// On success the validated claims are stored in the request context; on
// failure it answers 401 with a body naming the cause and stops the chain.
func RequireAuth(tokens *TokenService, header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultTokenHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.Validate(TokenFromRequest(r, header))
			if err != nil {
				writeUnauthorized(w, err)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the raw token carried by r, or "" if none.
func TokenFromRequest(r *http.Request, header string) string {
	if tok := strings.TrimSpace(r.Header.Get(header)); tok != "" {
		return tok
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// WithClaims returns a copy of ctx carrying the claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext retrieves the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Usage in handlers:
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // route was mounted without RequireAuth
//	}
func UserIDFromContext(ctx context.Context) (int64, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	return c.UserID, c.UserID > 0
}

// CauseOf maps a Validate error to the cause string sent to clients.
func CauseOf(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return CauseTokenMissing
	case errors.Is(err, ErrTokenExpired):
		return CauseTokenExpired
	default:
		return CauseTokenInvalid
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	cause := CauseOf(err)
	msg := "authentication token is invalid"
	switch cause {
	case CauseTokenMissing:
		msg = "authentication token is required"
	case CauseTokenExpired:
		msg = "authentication token has expired, log in again"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": cause, "message": msg})
}
