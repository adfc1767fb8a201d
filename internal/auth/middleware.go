package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/unclefab/unclefab-auth/internal/platform/httpx"
	"github.com/unclefab/unclefab-auth/internal/token"
)

// AccessTokenCookie and RefreshTokenCookie are the cookie names shared
// with the storefront SPA.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// RequireAuth verifies the caller's access token, from the cookie or a
// bearer Authorization header, and attaches the resulting identity to
// the request context. Any verification failure is a plain 401.
func RequireAuth(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := accessTokenFromRequest(r)
			if raw == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unauthorized request")
				return
			}
			claims, err := tokens.Verify(token.Access, raw)
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid access token")
				return
			}
			id, err := uuid.Parse(claims.AccountID)
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid access token")
				return
			}
			identity := Identity{ID: id, Email: claims.Email, Name: claims.Name}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
