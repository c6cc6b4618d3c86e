package audit

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/util"
)

type EventType string

const (
	EventCodeRequested    EventType = "login_code_requested"
	EventLoginSuccess     EventType = "login_success"
	EventLoginFailure     EventType = "login_failure"
	EventLogout           EventType = "logout"
	EventAdminLogin       EventType = "admin_login"
	EventAdminLoginFailed EventType = "admin_login_failure"
	EventAdminLogout      EventType = "admin_logout"
	EventUserRegister     EventType = "user_register"
	EventRateLimitExceed  EventType = "rate_limit_exceeded"
	EventCSRFFailure      EventType = "csrf_failure"
	EventWebhookRejected  EventType = "webhook_rejected"
	EventProvision        EventType = "vault_provision"
	EventImport           EventType = "registrant_import"
	EventCatalogUpsert    EventType = "catalog_upsert"
	EventStorageConnect   EventType = "storage_connect"
)

// Event is one security-relevant action. Details values are written as
// typed zerolog fields.
type Event struct {
	Type      EventType
	UserID    string
	Actor     string
	IP        string
	UserAgent string
	RequestID string
	Details   map[string]any
}

func Log(event Event) {
	ctx := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type))

	for key, value := range map[string]string{
		"user_id":    event.UserID,
		"actor":      event.Actor,
		"ip":         event.IP,
		"user_agent": event.UserAgent,
		"request_id": event.RequestID,
	} {
		if value != "" {
			ctx = ctx.Str(key, value)
		}
	}

	logger := ctx.Logger()
	e := logger.Info()
	for k, v := range event.Details {
		e = addField(e, k, v)
	}
	e.Msg("audit event")
}

func addField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	case []string:
		return e.Strs(key, v)
	default:
		return e.Interface(key, v)
	}
}

// LogFromRequest fills in the client ip, user agent and chi request id.
func LogFromRequest(r *http.Request, event Event) {
	event.IP = util.ClientIP(r)
	event.UserAgent = r.UserAgent()
	event.RequestID = chimw.GetReqID(r.Context())
	Log(event)
}
