package middleware

import (
	"context"
	"net/http"

	"github.com/hmaged/tutorbase/pkg/response"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session_token"

// AuthUser is the identity resolved from a session token.
type AuthUser struct {
	ID   int64
	Role string
}

// SessionStore resolves a session token to the user it belongs to.
// It returns nil (and no error) when the token is unknown or expired.
type SessionStore interface {
	GetUserBySessionToken(ctx context.Context, token string) (*AuthUser, error)
}

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserKey is the context key for the authenticated user
	UserKey ContextKey = "auth_user"
)

// Authenticate resolves the session cookie through the store and puts the
// authenticated user on the request context. Requests without a valid session
// are rejected with 401.
func Authenticate(store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				response.Unauthorized(w, "Authentication required")
				return
			}

			user, err := store.GetUserBySessionToken(r.Context(), cookie.Value)
			if err != nil {
				response.InternalError(w, "Failed to resolve session")
				return
			}
			if user == nil {
				response.Unauthorized(w, "Invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRole rejects with 403 unless the authenticated user has one of the
// given roles. Must be mounted after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				response.Unauthorized(w, "Authentication required")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, "Insufficient permissions")
		})
	}
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(UserKey).(*AuthUser)
	return user, ok
}
