package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aisessions/server/internal/audit"
	"github.com/aisessions/server/internal/middleware"
	"github.com/aisessions/server/internal/model"
)

type AdminRoster interface {
	List(ctx context.Context, actorID string) ([]model.AdminListing, error)
	Grant(ctx context.Context, actorID, email string) (*model.AdminUser, error)
	Revoke(ctx context.Context, actorID, userID string) error
}

// AdminHandler manages the admin roster. Every call is authorized by the
// roster service itself.
type AdminHandler struct {
	roster   AdminRoster
	registry StoreRegistry
}

func NewAdminHandler(roster AdminRoster, registry StoreRegistry) *AdminHandler {
	return &AdminHandler{roster: roster, registry: registry}
}

// Routes mounts under /api/admins.
func (h *AdminHandler) Routes(mutationLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)

	r.Get("/", h.List)
	r.With(mutationLimit).Post("/", h.Grant)
	r.With(mutationLimit).Delete("/{userId}", h.Revoke)

	return r
}

// GET /api/admins
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	admins, err := h.roster.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": admins,
		"total": len(admins),
	})
}

// POST /api/admins
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	admin, err := h.roster.Grant(r.Context(), user.ID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The grantee's cached isAdmin is stale now.
	h.registry.Drop(admin.UserID)

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventAdminGrant,
		UserID:   user.ID,
		TargetID: admin.UserID,
	})

	writeJSON(w, http.StatusCreated, admin)
}

// DELETE /api/admins/{userId}
func (h *AdminHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := middleware.GetUser(r.Context())
	if err := h.roster.Revoke(r.Context(), user.ID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	h.registry.Drop(userID)

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventAdminRevoke,
		UserID:   user.ID,
		TargetID: userID,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
