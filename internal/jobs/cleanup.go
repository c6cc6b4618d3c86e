package jobs

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/repository"
)

// AuthPruner deletes expired sessions, expired admin sessions and login
// codes that are expired or already used. It runs inline at the start of
// auth flows rather than on a timer.
type AuthPruner struct {
	sessionRepo      repository.SessionRepository
	adminSessionRepo repository.AdminSessionRepository
	loginCodeRepo    repository.LoginCodeRepository
}

func NewAuthPruner(
	sessionRepo repository.SessionRepository,
	adminSessionRepo repository.AdminSessionRepository,
	loginCodeRepo repository.LoginCodeRepository,
) *AuthPruner {
	return &AuthPruner{
		sessionRepo:      sessionRepo,
		adminSessionRepo: adminSessionRepo,
		loginCodeRepo:    loginCodeRepo,
	}
}

// Prune never fails the caller; errors are logged.
func (p *AuthPruner) Prune(ctx context.Context) {
	p.runCleanup(ctx, "sessions", p.sessionRepo.DeleteExpired)
	p.runCleanup(ctx, "login codes", p.loginCodeRepo.DeleteExpiredOrConsumed)
	p.runCleanup(ctx, "admin sessions", p.adminSessionRepo.DeleteExpired)
}

func (p *AuthPruner) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Debug().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
