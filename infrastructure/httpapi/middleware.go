package httpapi

import (
	"context"
	"net/http"
	"strings"

	"chat-relay/contract"
)

type contextKey string

const userIDKey contextKey = "userID"

// BearerAuth rejects requests without a verifiable bearer token and stores
// the resolved user id on the request context.
func BearerAuth(verifier contract.ITokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := verifier.VerifyToken(token)
			if err != nil || userID == "" {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user id set by BearerAuth.
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
