package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/jobs"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/repository"
	"github.com/recvault/vault-server-go/internal/util"
)

type AdminService struct {
	sessionRepo  repository.AdminSessionRepository
	pruner       *jobs.AuthPruner
	email        string
	passwordHash string
	secret       string
	ttl          time.Duration
	now          func() time.Time
}

func NewAdminService(
	sessionRepo repository.AdminSessionRepository,
	pruner *jobs.AuthPruner,
	cfg *config.Config,
) *AdminService {
	return &AdminService{
		sessionRepo:  sessionRepo,
		pruner:       pruner,
		email:        util.NormalizeEmail(cfg.AdminEmail),
		passwordHash: cfg.AdminPasswordHash,
		secret:       cfg.SessionSecret,
		ttl:          cfg.AdminSessionTTL(),
		now:          time.Now,
	}
}

func (s *AdminService) Configured() bool {
	return s.email != "" && s.passwordHash != ""
}

// Login checks the operator credentials and opens an admin session.
func (s *AdminService) Login(ctx context.Context, email, password string) (*IssuedSession, error) {
	if !s.Configured() {
		return nil, apperrors.AdminNotConfigured()
	}

	email = util.NormalizeEmail(email)
	emailOK := util.ConstantTimeEqual(email, s.email)
	// bcrypt runs regardless so a wrong email costs the same as a wrong password.
	passwordOK := util.CheckPasswordHash(password, s.passwordHash)
	if !emailOK || !passwordOK {
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	expiresAt := s.now().Add(s.ttl)
	if _, err := s.sessionRepo.Create(ctx, model.CreateAdminSessionParams{
		AdminEmail: email,
		TokenHash:  util.HashWithSecret(s.secret, token),
		ExpiresAt:  expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("create admin session: %w", err)
	}

	return &IssuedSession{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateSession returns the live admin session for token, or nil.
func (s *AdminService) ValidateSession(ctx context.Context, token string) (*model.AdminSession, error) {
	s.pruner.Prune(ctx)

	if token == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByTokenHash(ctx, util.HashWithSecret(s.secret, token))
	if err != nil {
		return nil, fmt.Errorf("find admin session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if err := s.sessionRepo.Touch(ctx, session.ID); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to touch admin session")
	}
	return session, nil
}

func (s *AdminService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.DeleteByTokenHash(ctx, util.HashWithSecret(s.secret, token))
}
