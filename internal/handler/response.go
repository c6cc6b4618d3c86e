package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/httputil"
	"github.com/recvault/vault-server-go/internal/service"
	"github.com/recvault/vault-server-go/internal/util"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// decodeJSON reads a JSON body into dst. An oversized body or malformed
// JSON becomes a validation error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.ValidationError("Request body too large")
		}
		return apperrors.ValidationError("Invalid JSON body")
	}
	return nil
}

func clientFingerprint(r *http.Request) service.ClientFingerprint {
	return service.ClientFingerprint{
		UserAgent: r.UserAgent(),
		IP:        util.ClientIP(r),
	}
}
