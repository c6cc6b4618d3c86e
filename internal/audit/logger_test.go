package audit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestLogFromRequest(t *testing.T) {
	buf := captureLog(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/register", nil)
	req.Header.Set("User-Agent", "curl/8")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	var handled bool
	chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled = true
		LogFromRequest(r, Event{
			Type:    EventUserRegister,
			UserID:  "u1",
			Actor:   "ops@x.com",
			Details: map[string]any{"created": true, "rows": 3},
		})
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, handled)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "user_register", line["event_type"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "ops@x.com", line["actor"])
	assert.Equal(t, "203.0.113.9", line["ip"])
	assert.Equal(t, "curl/8", line["user_agent"])
	assert.NotEmpty(t, line["request_id"])
	assert.Equal(t, true, line["created"])
	assert.Equal(t, float64(3), line["rows"])
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	buf := captureLog(t)

	Log(Event{Type: EventLogout})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "logout", line["event_type"])
	assert.NotContains(t, line, "user_id")
	assert.NotContains(t, line, "ip")
	assert.NotContains(t, line, "request_id")
}
