package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aisessions/server/internal/audit"
	"github.com/aisessions/server/internal/config"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/middleware"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/store"
	"github.com/aisessions/server/internal/util"
)

// StoreHandler exposes the signed-in user's store over JSON.
type StoreHandler struct {
	registry StoreRegistry
}

func NewStoreHandler(registry StoreRegistry) *StoreHandler {
	return &StoreHandler{registry: registry}
}

// Routes mounts under /api. mutationLimit wraps every state-changing route.
func (h *StoreHandler) Routes(mutationLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)

	r.Get("/state", h.State)
	r.Get("/sessions/upcoming", h.UpcomingSessions)
	r.Get("/sessions/past", h.PastSessions)
	r.Get("/topics", h.ListTopics)
	r.Get("/topics/leaderboard", h.Leaderboard)

	r.Group(func(r chi.Router) {
		r.Use(mutationLimit)

		r.Post("/sessions", h.CreateSession)
		r.Patch("/sessions/{id}", h.UpdateSession)
		r.Post("/topics", h.SubmitTopic)
		r.Patch("/topics/{id}", h.UpdateTopic)
		r.Delete("/topics/{id}", h.DeleteTopic)
		r.Post("/topics/{id}/vote", h.ToggleVote)
	})

	return r
}

func (h *StoreHandler) userStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	s, err := h.registry.Get(r.Context(), middleware.GetUser(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}

// GET /api/state
func (h *StoreHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("refresh") == "1" {
		// Partial failures are reported through the snapshot's lastError.
		_ = s.Refresh(r.Context())
	}

	writeJSON(w, http.StatusOK, s.Snapshot())
}

// GET /api/sessions/upcoming
func (h *StoreHandler) UpcomingSessions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Snapshot().Upcoming})
}

// GET /api/sessions/past
func (h *StoreHandler) PastSessions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Snapshot().Past})
}

// POST /api/sessions
func (h *StoreHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	var draft store.SessionDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, r, err)
		return
	}
	if draft.TopicID != nil && !util.IsValidUUID(*draft.TopicID) {
		writeError(w, r, apperrors.InvalidInput("topicId", "must be a UUID"))
		return
	}

	session, err := s.CreateSession(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	details := map[string]any{"title": session.Title}
	if session.TopicID != nil {
		details["topicId"] = *session.TopicID
	}
	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventSessionCreate,
		UserID:   s.User().ID,
		TargetID: session.ID,
		Details:  details,
	})

	writeJSON(w, http.StatusCreated, session)
}

// PATCH /api/sessions/{id}
func (h *StoreHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	var update store.SessionUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, r, err)
		return
	}
	update.ID = id

	if err := s.UpdateSession(r.Context(), update); err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventSessionUpdate,
		UserID:   s.User().ID,
		TargetID: id,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/topics?q=&sort=votes|newest
func (h *StoreHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	topics := s.VotableTopics(query.Get("q"), model.ParseTopicSort(query.Get("sort")))

	writeJSON(w, http.StatusOK, map[string]any{
		"items": topics,
		"total": len(topics),
	})
}

// GET /api/topics/leaderboard
func (h *StoreHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Leaderboard(config.LeaderboardSize)})
}

// POST /api/topics
func (h *StoreHandler) SubmitTopic(w http.ResponseWriter, r *http.Request) {
	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	var submission store.TopicSubmission
	if err := decodeJSON(r, &submission); err != nil {
		writeError(w, r, err)
		return
	}

	topic, err := s.SubmitTopic(r.Context(), submission)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, topic)
}

// PATCH /api/topics/{id}
func (h *StoreHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	var patch model.TopicPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.UpdateTopic(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventTopicUpdate,
		UserID:   s.User().ID,
		TargetID: id,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DELETE /api/topics/{id}
func (h *StoreHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	if err := s.DeleteTopic(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventTopicDelete,
		UserID:   s.User().ID,
		TargetID: id,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/topics/{id}/vote
func (h *StoreHandler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, ok := h.userStore(w, r)
	if !ok {
		return
	}

	voted, err := s.ToggleVote(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topicId": id,
		"voted":   voted,
	})
}
