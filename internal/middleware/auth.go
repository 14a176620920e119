package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
)

type contextKey string

const UserContextKey contextKey = "user"

// LoginPath is where unauthenticated API callers are sent.
const LoginPath = "/auth/login"

func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserContextKey).(*model.User); ok {
		return user
	}
	return nil
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// RequireUser rejects requests that carry no signed-in user. The body tells
// the client where to sign in.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			log.Debug().Str("path", r.URL.Path).Msg("unauthenticated request rejected")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":    "Sign in required",
				"code":     string(apperrors.ErrCodeNotAuthenticated),
				"redirect": LoginPath,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
