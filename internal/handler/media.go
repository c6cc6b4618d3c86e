package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/middleware"
	"github.com/recvault/vault-server-go/internal/service"
	"github.com/recvault/vault-server-go/internal/storage"
)

// MediaHandler relays video and material bytes from storage without
// exposing storage URLs or file ids.
type MediaHandler struct {
	media MediaService
}

func NewMediaHandler(media MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// GET /api/stream-ticket/{assetId}
func (h *MediaHandler) StreamTicket(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	ticket, err := h.media.IssueStreamTicket(r.Context(), user.UserID, chi.URLParam(r, "assetId"), clientFingerprint(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, ticket)
}

// GET /api/stream/{assetId}?token=
func (h *MediaHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperrors.InvalidToken("Forbidden stream token"))
		return
	}

	stream, err := h.media.OpenStream(
		r.Context(),
		user.UserID,
		chi.URLParam(r, "assetId"),
		token,
		clientFingerprint(r),
		r.Header.Get("Range"),
	)
	if err != nil {
		writeMediaError(w, err)
		return
	}
	relay(w, r, stream)
}

// GET /api/material/{assetId}
func (h *MediaHandler) Material(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	stream, err := h.media.OpenMaterial(r.Context(), user.UserID, chi.URLParam(r, "assetId"))
	if err != nil {
		writeMediaError(w, err)
		return
	}
	relay(w, r, stream)
}

// relay copies the upstream object to the client. The upstream read is
// bound to the request context, so a client disconnect stops it.
func relay(w http.ResponseWriter, r *http.Request, stream *service.MediaStream) {
	obj := stream.Object
	defer obj.Body.Close()

	h := w.Header()
	h.Set("Content-Type", stream.ContentType)
	h.Set("Content-Disposition", stream.ContentDisposition)
	h.Set("Cache-Control", "private, no-store, max-age=0")
	h.Set("X-Content-Type-Options", "nosniff")
	if obj.ContentLength != "" {
		h.Set("Content-Length", obj.ContentLength)
	}
	if obj.ContentRange != "" {
		h.Set("Content-Range", obj.ContentRange)
	}
	if obj.AcceptRanges != "" {
		h.Set("Accept-Ranges", obj.AcceptRanges)
	} else {
		h.Set("Accept-Ranges", "bytes")
	}

	status := obj.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if n, err := io.Copy(w, obj.Body); err != nil && r.Context().Err() == nil {
		log.Warn().Err(err).Int64("bytes", n).Msg("media relay interrupted")
	}
}

func writeMediaError(w http.ResponseWriter, err error) {
	var upstream *storage.UpstreamError
	switch {
	case errors.As(err, &upstream) && upstream.Status == http.StatusRequestedRangeNotSatisfiable:
		writeJSON(w, http.StatusRequestedRangeNotSatisfiable, map[string]string{
			"error": "Requested range not satisfiable",
		})
	case errors.As(err, &upstream) && upstream.Status == http.StatusNotFound:
		writeError(w, apperrors.NotFound("Asset"))
	case errors.As(err, &upstream), errors.Is(err, storage.ErrNotConnected):
		writeError(w, apperrors.External("storage", err))
	default:
		writeError(w, err)
	}
}
