package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recvault/vault-server-go/internal/audit"
	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/middleware"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/storage"
	"github.com/recvault/vault-server-go/internal/util"
)

type AdminHandler struct {
	admin             AdminAuth
	registrar         Registrar
	importer          RegistrantImporter
	catalog           CatalogEditor
	validator         PayloadValidator
	guard             *middleware.RateGuard
	sessionMiddleware func(http.Handler) http.Handler
	cookieName        string
	secure            bool
}

func NewAdminHandler(
	admin AdminAuth,
	registrar Registrar,
	importer RegistrantImporter,
	catalog CatalogEditor,
	validator PayloadValidator,
	guard *middleware.RateGuard,
	sessionMiddleware func(http.Handler) http.Handler,
	cookieName string,
	secure bool,
) *AdminHandler {
	return &AdminHandler{
		admin:             admin,
		registrar:         registrar,
		importer:          importer,
		catalog:           catalog,
		validator:         validator,
		guard:             guard,
		sessionMiddleware: sessionMiddleware,
		cookieName:        cookieName,
		secure:            secure,
	}
}

// Routes mounts under /api/admin. The caller wraps it in CSRF protection.
// Storage routes are mounted separately by StorageHandler. Body limits are
// per route; the registrant import accepts a larger body.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	jsonLimit := middleware.NewBodyLimitMiddleware(config.MaxJSONBodySize).Handler

	r.Get("/auth/session", h.Session)
	r.With(h.guard.PerIP("admin-login", config.AdminLoginRateLimit, config.AuthRateWindow), jsonLimit).
		Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)

		r.With(jsonLimit).Post("/users/register", h.RegisterUser)
		r.With(middleware.NewBodyLimitMiddleware(config.MaxImportBodySize).Handler).
			Post("/users/import-registrants", h.ImportRegistrants)

		r.Get("/entries", h.ListEntries)
		r.With(jsonLimit).Post("/entries", h.UpsertEntry)
	})

	return r
}

// GET /api/admin/auth/session also hands out the CSRF cookie before login.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"authenticated": false,
		"configured":    h.admin.Configured(),
	}

	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" && h.admin.Configured() {
		session, err := h.admin.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		if session != nil {
			resp["authenticated"] = true
			resp["email"] = session.AdminEmail
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, apperrors.ValidationError("email and password are required"))
		return
	}

	session, err := h.admin.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeUnauthorized {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAdminLoginFailed, Actor: util.NormalizeEmail(req.Email)})
		}
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, h.cookieName, session.Token, session.ExpiresAt, h.secure)
	audit.LogFromRequest(r, audit.Event{Type: audit.EventAdminLogin, Actor: util.NormalizeEmail(req.Email)})
	writeSuccess(w)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.admin.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
		audit.LogFromRequest(r, audit.Event{Type: audit.EventAdminLogout})
	}

	middleware.ClearSessionCookie(w, h.cookieName, h.secure)
	writeSuccess(w)
}

func adminActor(r *http.Request) string {
	if session := middleware.GetAdminSession(r.Context()); session != nil {
		return session.AdminEmail
	}
	return ""
}

// POST /api/admin/users/register
func (h *AdminHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := util.NormalizeEmail(req.Email)
	if !util.IsLikelyEmail(email) {
		writeError(w, apperrors.InvalidInput("email", "must be a valid email address"))
		return
	}

	if err := h.guard.Check(r, "admin-register", config.AdminRegisterIPLimit, config.AuthRateWindow); err != nil {
		writeError(w, err)
		return
	}
	if err := h.guard.Check(r, "admin-register-email", config.AdminRegisterEmailLimit, config.AuthRateWindow, email); err != nil {
		writeError(w, err)
		return
	}

	owner, created, err := h.registrar.UpsertUserAndVault(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventUserRegister,
		UserID:  owner.UserID,
		Actor:   adminActor(r),
		Details: map[string]any{"created": created},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"created":   created,
		"email":     owner.Email,
		"vaultSlug": owner.Slug,
	})
}

// POST /api/admin/users/import-registrants
func (h *AdminHandler) ImportRegistrants(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CSV string `json:"csv"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.importer.Import(r.Context(), req.CSV)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:  audit.EventImport,
		Actor: adminActor(r),
		Details: map[string]any{
			"rows":        report.TotalRows,
			"provisioned": report.ProvisionedUsers,
			"failed":      report.FailedUsers,
		},
	})
	writeJSON(w, http.StatusOK, report)
}

// GET /api/admin/entries
func (h *AdminHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, "limit", config.CatalogListLimit, config.CatalogListLimit)

	entries, err := h.catalog.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": entries,
	})
}

type catalogMaterialRequest struct {
	AssetID       string          `json:"assetId"`
	Title         string          `json:"title" validate:"required"`
	Kind          model.AssetKind `json:"kind" validate:"required,oneof=PDF ZIP"`
	StorageFileID string          `json:"storageFileId" validate:"required,storagefileid"`
	MimeType      *string         `json:"mimeType" validate:"omitempty,min=2"`
	SizeBytes     *int64          `json:"sizeBytes" validate:"omitempty,gt=0"`
}

type catalogEntryRequest struct {
	VideoID       string                   `json:"videoId" validate:"required"`
	ClassCode     string                   `json:"classCode" validate:"required"`
	ClassTitle    string                   `json:"classTitle" validate:"required"`
	ClassDate     *string                  `json:"classDate" validate:"omitempty,min=1"`
	ClassPrice    *float64                 `json:"classPrice" validate:"omitempty,gte=0"`
	StorageFileID string                   `json:"storageFileId" validate:"required,storagefileid"`
	MimeType      *string                  `json:"mimeType" validate:"omitempty,min=2"`
	Materials     []catalogMaterialRequest `json:"materials" validate:"dive"`
}

func (req catalogEntryRequest) params() model.UpsertCatalogEntryParams {
	materials := make([]model.CatalogMaterial, len(req.Materials))
	for i, m := range req.Materials {
		materials[i] = model.CatalogMaterial{
			AssetID:       m.AssetID,
			Title:         m.Title,
			Kind:          m.Kind,
			StorageFileID: storage.ResolveFileID(m.StorageFileID),
			MimeType:      m.MimeType,
			SizeBytes:     m.SizeBytes,
		}
	}
	return model.UpsertCatalogEntryParams{
		VideoID:       req.VideoID,
		ClassCode:     req.ClassCode,
		ClassTitle:    req.ClassTitle,
		ClassDate:     req.ClassDate,
		ClassPrice:    req.ClassPrice,
		StorageFileID: storage.ResolveFileID(req.StorageFileID),
		MimeType:      req.MimeType,
		Materials:     materials,
	}
}

// POST /api/admin/entries creates or replaces a catalog entry and syncs
// every package provisioned from it.
func (h *AdminHandler) UpsertEntry(w http.ResponseWriter, r *http.Request) {
	var req catalogEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if errs := h.validator.Struct(req); len(errs) > 0 {
		writeError(w, apperrors.ValidationError("Invalid catalog entry").WithDetails(errs))
		return
	}

	entry, sync, err := h.catalog.UpsertEntry(r.Context(), req.params())
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:  audit.EventCatalogUpsert,
		Actor: adminActor(r),
		Details: map[string]any{
			"videoId":         entry.VideoID,
			"updatedPackages": sync.UpdatedPackages,
		},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entry":   entry,
		"sync":    sync,
	})
}
