package middleware

import (
	"net/http"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeAppError(w http.ResponseWriter, err *apperrors.AppError) {
	httputil.WriteError(w, err)
}
