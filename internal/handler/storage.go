package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/audit"
	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/service"
	"github.com/recvault/vault-server-go/internal/storage"
	"github.com/recvault/vault-server-go/internal/util"
)

const (
	connectStateCookie = "rv_storage_state"
	connectCookiePath  = "/api/admin/storage/connect"
	adminPagePath      = "/admin"
)

// StorageHandler serves the operator storage tools: status, file lookup
// and the Drive connect flow.
type StorageHandler struct {
	storage StorageAdmin
	secure  bool
}

func NewStorageHandler(storage StorageAdmin, secure bool) *StorageHandler {
	return &StorageHandler{storage: storage, secure: secure}
}

// Routes mounts under /api/admin/storage behind the admin session.
func (h *StorageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Get("/files", h.ListFiles)
	r.Get("/file", h.FileInfo)
	r.Get("/connect/start", h.ConnectStart)
	r.Get("/connect/callback", h.ConnectCallback)
	return r
}

func (h *StorageHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.storage.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GET /api/admin/storage/files?query&pageToken&pageSize
func (h *StorageHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.storage.ListFiles(r.Context(), storage.ListOptions{
		Query:     q.Get("query"),
		PageToken: q.Get("pageToken"),
		PageSize:  parseLimit(r, "pageSize", config.DriveListDefaultSize, config.DriveListMaxSize),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"files":         list.Files,
		"nextPageToken": list.NextPageToken,
	})
}

// GET /api/admin/storage/file?input=
func (h *StorageHandler) FileInfo(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if input == "" {
		writeError(w, apperrors.MissingRequired("input"))
		return
	}

	info, err := h.storage.FileInfo(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file":    info,
	})
}

func (h *StorageHandler) ConnectStart(w http.ResponseWriter, r *http.Request) {
	state, err := util.GenerateToken()
	if err != nil {
		writeError(w, apperrors.Internal("Failed to start storage connect"))
		return
	}

	authURL, err := h.storage.ConnectURL(state)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     connectStateCookie,
		Value:    state,
		Path:     connectCookiePath,
		MaxAge:   int(config.StorageConnectStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// ConnectCallback always redirects back to the admin page with the outcome
// in the query string.
func (h *StorageHandler) ConnectCallback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     connectStateCookie,
		Value:    "",
		Path:     connectCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	q := r.URL.Query()
	cookie, err := r.Cookie(connectStateCookie)
	switch {
	case q.Get("error") != "":
		h.connectFailed(w, r, "access_denied")
		return
	case err != nil || cookie.Value == "" || !util.ConstantTimeEqual(cookie.Value, q.Get("state")):
		h.connectFailed(w, r, "invalid_state")
		return
	case q.Get("code") == "":
		h.connectFailed(w, r, "missing_code")
		return
	}

	if err := h.storage.CompleteConnect(r.Context(), q.Get("code")); err != nil {
		var failure *service.ConnectFailure
		if errors.As(err, &failure) {
			h.connectFailed(w, r, failure.Reason)
			return
		}
		log.Error().Err(err).Msg("storage connect failed")
		h.connectFailed(w, r, "save_failed")
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventStorageConnect,
		Actor:   adminActor(r),
		Details: map[string]any{"result": "connected"},
	})
	http.Redirect(w, r, adminPagePath+"?drive=connected", http.StatusFound)
}

func (h *StorageHandler) connectFailed(w http.ResponseWriter, r *http.Request, reason string) {
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventStorageConnect,
		Actor:   adminActor(r),
		Details: map[string]any{"result": "error", "reason": reason},
	})
	http.Redirect(w, r, adminPagePath+"?drive=error&reason="+url.QueryEscape(reason), http.StatusFound)
}
