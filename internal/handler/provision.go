package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/recvault/vault-server-go/internal/audit"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
)

// ProvisionHandler accepts the signed booking-system webhook.
type ProvisionHandler struct {
	provisioner Provisioner
}

func NewProvisionHandler(provisioner Provisioner) *ProvisionHandler {
	return &ProvisionHandler{provisioner: provisioner}
}

// POST /api/webhooks/provision-vault
func (h *ProvisionHandler) ProvisionVault(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperrors.ValidationError("Request body too large"))
			return
		}
		writeError(w, apperrors.ValidationError("Failed to read request body"))
		return
	}

	result, err := h.provisioner.Provision(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:  audit.EventProvision,
		Actor: result.Email,
		Details: map[string]any{
			"format": result.Format,
		},
	})
	writeJSON(w, http.StatusOK, result)
}
