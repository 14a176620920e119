package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/audit"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/service"
)

type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) service.RateLimitResult
}

// UserRateLimitMiddleware limits requests per signed-in user. Requests
// without a user pass through; RequireUser handles them.
type UserRateLimitMiddleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	prefix  string
}

func NewUserRateLimitMiddleware(limiter Limiter, limit int, window time.Duration, prefix string) *UserRateLimitMiddleware {
	return &UserRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (m *UserRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		result := m.limiter.CheckLimit(r.Context(), m.prefix+":"+user.ID, m.limit, m.window)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			log.Warn().Str("userId", user.ID).Str("limit", m.prefix).Msg("rate limit exceeded")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				UserID:  user.ID,
				Details: map[string]any{"limit": m.prefix},
			})
			writeTooManyRequests(w, result.ResetAt)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeTooManyRequests(w http.ResponseWriter, resetAt time.Time) {
	secondsLeft := int(time.Until(resetAt).Seconds()) + 1
	if secondsLeft < 1 {
		secondsLeft = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secondsLeft))
	writeAppError(w, apperrors.RateLimitExceeded())
}
