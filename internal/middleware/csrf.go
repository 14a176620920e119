package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/audit"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/util"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFMiddleware uses the double-submit cookie pattern: a readable cookie
// holds a token that state-changing requests must echo in X-CSRF-Token.
type CSRFMiddleware struct {
	isProduction bool
}

func NewCSRFMiddleware(isProduction bool) *CSRFMiddleware {
	return &CSRFMiddleware{isProduction: isProduction}
}

func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CSRFCookieName)
		if err != nil || cookie.Value == "" {
			token, err := util.NewToken()
			if err != nil {
				log.Error().Err(err).Msg("csrf: token generation failed")
				writeAppError(w, apperrors.Internal("Failed to generate security token"))
				return
			}
			m.setCSRFCookie(w, token)
			cookie = &http.Cookie{Value: token}
		}

		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get(CSRFHeaderName)
		if headerToken == "" || !util.TokensEqual(cookie.Value, headerToken) {
			event := audit.Event{Type: audit.EventCSRFFailure, Details: map[string]any{"path": r.URL.Path}}
			if user := GetUser(r.Context()); user != nil {
				event.UserID = user.ID
			}
			audit.LogFromRequest(r, event)

			msg := "Invalid CSRF token"
			if headerToken == "" {
				msg = "Missing CSRF token"
			}
			writeAppError(w, apperrors.CSRFRejected(msg))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *CSRFMiddleware) setCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // read by the page script
		Secure:   m.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}
