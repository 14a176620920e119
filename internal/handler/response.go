package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/httputil"
	"github.com/aisessions/server/internal/util"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// writeError logs server-side failures and renders err with its mapped status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	if httputil.StatusFromCode(code) >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	httputil.WriteError(w, err)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return apperrors.BodyTooLarge(maxBytes.Limit)
		}
		return apperrors.ValidationError("Invalid request body")
	}
	return nil
}

// uuidParam reads a chi path parameter that must be a UUID.
func uuidParam(r *http.Request, name string) (string, error) {
	id := chi.URLParam(r, name)
	if !util.IsValidUUID(id) {
		return "", apperrors.InvalidInput(name, "must be a UUID")
	}
	return id, nil
}
