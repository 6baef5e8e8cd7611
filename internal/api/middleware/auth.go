// Package middleware provides the directory's API middleware: partner
// authentication, admin checks, CORS and client rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/user"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
)

type contextKey string

const userKey contextKey = "user"

// UserHeader carries the ID of the signed-in partner.
const UserHeader = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, id string) (*user.User, error)
}

// Auth loads the user named by the user header into the request context.
// Missing and unknown users are rejected with 403.
func Auth(users Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := users.Authenticate(r.Context(), r.Header.Get(UserHeader))
			if err != nil {
				status := apperrors.HTTPStatusCode(err)
				if status >= http.StatusInternalServerError {
					logger.FromContext(r.Context()).Error("user lookup failed", "error", err)
				}
				writeError(w, status, apperrors.Message(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin rejects users without admin rights. It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := UserFromContext(r.Context()); u == nil || !u.IsAdmin {
			writeError(w, http.StatusForbidden, "this route requires admin access")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(userKey).(*user.User)
	return u
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
