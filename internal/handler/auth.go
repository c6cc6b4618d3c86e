package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recvault/vault-server-go/internal/audit"
	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/middleware"
	"github.com/recvault/vault-server-go/internal/util"
)

// AuthHandler serves the customer email-code login.
type AuthHandler struct {
	auth       LoginService
	guard      *middleware.RateGuard
	cookieName string
	secure     bool
}

func NewAuthHandler(auth LoginService, guard *middleware.RateGuard, cookieName string, secure bool) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		guard:      guard,
		cookieName: cookieName,
		secure:     secure,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/request-code", h.RequestCode)
	r.Post("/verify-code", h.VerifyCode)
	r.Post("/logout", h.Logout)
	return r
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := util.NormalizeEmail(req.Email)
	if !util.IsLikelyEmail(email) {
		writeError(w, apperrors.InvalidInput("email", "must be a valid email address"))
		return
	}

	if err := h.guard.Check(r, "login-request", config.LoginRequestRateLimit, config.AuthRateWindow, email); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.RequestCode(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventCodeRequested, Actor: email})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login code sent.",
	})
}

func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := util.NormalizeEmail(req.Email)
	if email == "" || req.Code == "" {
		writeError(w, apperrors.ValidationError("email and code are required"))
		return
	}

	if err := h.guard.Check(r, "login-verify", config.LoginVerifyRateLimit, config.AuthRateWindow, email); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.auth.VerifyCode(r.Context(), email, req.Code)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeUnauthorized {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginFailure, Actor: email})
		}
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, h.cookieName, session.Token, session.ExpiresAt, h.secure)
	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess, UserID: session.UserID})
	writeSuccess(w)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLogout})
	}

	middleware.ClearSessionCookie(w, h.cookieName, h.secure)
	writeSuccess(w)
}
