package middleware

import (
	"context"
	"net/http"
	"strings"

	"projecthub/internal/app/service"
	"projecthub/internal/common"
	"projecthub/internal/common/security"
	"projecthub/internal/platform/cache"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const UserIDCtxKey contextKey = "userID"

// Authenticator gates protected routes behind valid-token resolution:
// signature and expiry are checked by the jwtauth verifier upstream,
// the denylist catches tokens invalidated by logout, and the resolved
// user id is injected into the request context for downstream handlers.
func Authenticator(denylist cache.TokenDenylist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if err != nil {
				if strings.Contains(err.Error(), "token not found") || token == nil {
					common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				} else {
					common.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				}
				return
			}
			if token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			rawToken := jwtauth.TokenFromHeader(r)
			signature, err := security.TokenSignature(rawToken)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			revoked, err := denylist.IsRevoked(r.Context(), signature)
			if err != nil {
				common.RespondWithError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if revoked {
				common.RespondWithError(w, http.StatusUnauthorized, "Token has been invalidated")
				return
			}

			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission allows the request through if the caller holds ANY
// of the listed permissions (OR-list semantics). Runs after
// Authenticator, so a missing identity here is a server-side wiring
// fault, not a client error.
func RequirePermission(access *service.AccessService, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
				return
			}

			allowed, err := access.CanAny(r.Context(), userID, permissions...)
			if err != nil {
				common.RespondWithError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !allowed {
				common.RespondWithError(w, http.StatusForbidden, "You do not have the required permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext returns the authenticated user's id.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}
