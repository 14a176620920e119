package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/audit"
	"github.com/aisessions/server/internal/config"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/middleware"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/store"
)

type Authenticator interface {
	AuthURL() (authURL string, nonce string, err error)
	HandleCallback(ctx context.Context, code, state, expectedNonce string) (*model.User, string, error)
	Logout(ctx context.Context, token string) error
}

// StoreRegistry hands out the per-user stores.
type StoreRegistry interface {
	Get(ctx context.Context, user *model.User) (*store.Store, error)
	Drop(userID string)
}

type AuthHandler struct {
	auth         Authenticator
	registry     StoreRegistry
	sessionTTL   time.Duration
	isProduction bool
}

func NewAuthHandler(auth Authenticator, registry StoreRegistry, sessionTTL time.Duration, isProduction bool) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		registry:     registry,
		sessionTTL:   sessionTTL,
		isProduction: isProduction,
	}
}

// Routes mounts under /auth. loginLimit guards the sign-in redirect.
func (h *AuthHandler) Routes(loginLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.With(loginLimit).Get("/login", h.Login)
	r.Get("/callback", h.Callback)
	r.Post("/logout", h.Logout)
	r.With(middleware.RequireUser).Get("/me", h.Me)

	return r
}

// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	authURL, nonce, err := h.auth.AuthURL()
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, middleware.OAuthStateCookieName, nonce, "/auth", config.OAuthStateTTL, h.isProduction)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GET /auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var nonce string
	if cookie, err := r.Cookie(middleware.OAuthStateCookieName); err == nil {
		nonce = cookie.Value
	}
	middleware.ClearSessionCookie(w, middleware.OAuthStateCookieName, "/auth")

	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		log.Warn().Str("error", providerErr).Msg("OAuth error from provider")
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventLoginFailure,
			Details: map[string]any{"reason": providerErr},
		})
		writeError(w, r, apperrors.Unauthorized("Sign-in was cancelled"))
		return
	}

	user, token, err := h.auth.HandleCallback(r.Context(), r.URL.Query().Get("code"), r.URL.Query().Get("state"), nonce)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventLoginFailure,
			Details: map[string]any{"code": string(apperrors.GetCode(err))},
		})
		writeError(w, r, err)
		return
	}

	// A fresh store picks up admin grants made during sign-in.
	h.registry.Drop(user.ID)

	middleware.SetSessionCookie(w, middleware.SessionCookieName, token, "/", h.sessionTTL, h.isProduction)
	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess, UserID: user.ID})

	http.Redirect(w, r, "/", http.StatusFound)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			log.Error().Err(err).Msg("failed to delete login session")
		}
	}

	event := audit.Event{Type: audit.EventLogout}
	if user := middleware.GetUser(r.Context()); user != nil {
		h.registry.Drop(user.ID)
		event.UserID = user.ID
	}
	audit.LogFromRequest(r, event)

	middleware.ClearSessionCookie(w, middleware.SessionCookieName, "/")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	s, err := h.registry.Get(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    user,
		"isAdmin": s.IsAdmin(),
	})
}
