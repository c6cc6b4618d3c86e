package handler

import (
	"net/http"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/middleware"
)

type VaultHandler struct {
	vaults VaultReader
}

func NewVaultHandler(vaults VaultReader) *VaultHandler {
	return &VaultHandler{vaults: vaults}
}

// GET /api/vault
func (h *VaultHandler) GetVault(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	view, err := h.vaults.GetVault(r.Context(), user.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if view == nil {
		writeError(w, apperrors.NotFound("Vault"))
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"vault":   view,
	})
}
