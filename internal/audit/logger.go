package audit

import (
	"context"
	"net"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess    EventType = "login_success"
	EventLoginFailure    EventType = "login_failure"
	EventLogout          EventType = "logout"
	EventAdminGrant      EventType = "admin_grant"
	EventAdminRevoke     EventType = "admin_revoke"
	EventTopicUpdate     EventType = "topic_update"
	EventTopicDelete     EventType = "topic_delete"
	EventSessionCreate   EventType = "session_create"
	EventSessionUpdate   EventType = "session_update"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
	EventCSRFFailure     EventType = "csrf_failure"
)

// Event is one privileged or rejected action. UserID is the actor; TargetID
// the topic, session or user acted upon.
type Event struct {
	Type      EventType
	UserID    string
	TargetID  string
	IP        string
	UserAgent string
	Details   map[string]any
}

func (e Event) rejected() bool {
	switch e.Type {
	case EventLoginFailure, EventRateLimitExceed, EventCSRFFailure:
		return true
	}
	return false
}

func Log(ctx context.Context, event Event) {
	var entry *zerolog.Event
	if event.rejected() {
		entry = log.Warn()
	} else {
		entry = log.Info()
	}

	entry = entry.Str("audit", "security").Str("event_type", string(event.Type))
	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		entry = entry.Str("requestId", reqID)
	}
	for key, value := range map[string]string{
		"user_id":    event.UserID,
		"target_id":  event.TargetID,
		"ip":         event.IP,
		"user_agent": event.UserAgent,
	} {
		if value != "" {
			entry = entry.Str(key, value)
		}
	}
	if len(event.Details) > 0 {
		entry = entry.Fields(event.Details)
	}
	entry.Msg("audit")
}

// LogFromRequest stamps the client address and user agent. RealIP has
// already folded proxy headers into RemoteAddr.
func LogFromRequest(r *http.Request, event Event) {
	event.IP = remoteHost(r.RemoteAddr)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
