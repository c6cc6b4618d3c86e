package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/service"
)

type contextKey string

const (
	UserContextKey         contextKey = "user"
	AdminSessionContextKey contextKey = "adminSession"
)

func GetUser(ctx context.Context) *service.SessionUser {
	if user, ok := ctx.Value(UserContextKey).(*service.SessionUser); ok {
		return user
	}
	return nil
}

func GetAdminSession(ctx context.Context) *model.AdminSession {
	if session, ok := ctx.Value(AdminSessionContextKey).(*model.AdminSession); ok {
		return session
	}
	return nil
}

// WithUser is used by tests and by handlers that authenticate inline.
func WithUser(ctx context.Context, user *service.SessionUser) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

func WithAdminSession(ctx context.Context, session *model.AdminSession) context.Context {
	return context.WithValue(ctx, AdminSessionContextKey, session)
}

type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*service.SessionUser, error)
}

type AdminSessionValidator interface {
	Configured() bool
	ValidateSession(ctx context.Context, token string) (*model.AdminSession, error)
}

// UserSessionMiddleware requires a valid customer session cookie.
type UserSessionMiddleware struct {
	auth       SessionAuthenticator
	cookieName string
}

func NewUserSessionMiddleware(auth SessionAuthenticator, cookieName string) *UserSessionMiddleware {
	return &UserSessionMiddleware{auth: auth, cookieName: cookieName}
}

func (m *UserSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, apperrors.Unauthorized("Unauthorized"))
			return
		}

		user, err := m.auth.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			log.Error().Err(err).Msg("user session middleware: lookup failed")
			writeError(w, apperrors.Internal("Session validation failed"))
			return
		}
		if user == nil {
			writeError(w, apperrors.Unauthorized("Unauthorized"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// AdminSessionMiddleware requires a valid operator session cookie.
type AdminSessionMiddleware struct {
	admin      AdminSessionValidator
	cookieName string
}

func NewAdminSessionMiddleware(admin AdminSessionValidator, cookieName string) *AdminSessionMiddleware {
	return &AdminSessionMiddleware{admin: admin, cookieName: cookieName}
}

func (m *AdminSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.admin.Configured() {
			writeError(w, apperrors.AdminNotConfigured())
			return
		}

		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, apperrors.Unauthorized("Unauthorized"))
			return
		}

		session, err := m.admin.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			log.Error().Err(err).Msg("admin session middleware: lookup failed")
			writeError(w, apperrors.Internal("Session validation failed"))
			return
		}
		if session == nil {
			writeError(w, apperrors.Unauthorized("Unauthorized"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAdminSession(r.Context(), session)))
	})
}

func SetSessionCookie(w http.ResponseWriter, name, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
