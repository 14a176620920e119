package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
)

const (
	SessionCookieName    = "session"
	OAuthStateCookieName = "oauth_state"
)

// UserResolver maps a session cookie value to its user. A nil user with a
// nil error means the token is unknown or expired.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// UserSessionMiddleware attaches the signed-in user, if any, to the request
// context. It never rejects; pair it with RequireUser.
type UserSessionMiddleware struct {
	resolver UserResolver
}

func NewUserSessionMiddleware(resolver UserResolver) *UserSessionMiddleware {
	return &UserSessionMiddleware{resolver: resolver}
}

func (m *UserSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.resolver.CurrentUser(r.Context(), cookie.Value)
		if err != nil {
			log.Error().Err(err).Msg("user session middleware: lookup failed")
			writeAppError(w, apperrors.Internal("Session validation failed"))
			return
		}

		if user == nil {
			ClearSessionCookie(w, SessionCookieName, "/")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func SetSessionCookie(w http.ResponseWriter, name, token, path string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     path,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   path,
		MaxAge: -1,
	})
}
