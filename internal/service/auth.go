package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/jobs"
	"github.com/recvault/vault-server-go/internal/mailer"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/repository"
	"github.com/recvault/vault-server-go/internal/util"
)

// IssuedSession is a freshly minted session. Token is the only copy of the
// plaintext; the database keeps its hash.
type IssuedSession struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// SessionUser is the authenticated customer behind a session cookie.
type SessionUser struct {
	UserID    string
	Email     string
	SessionID string
}

type AuthService struct {
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	loginCodeRepo repository.LoginCodeRepository
	pruner        *jobs.AuthPruner
	mailer        mailer.Mailer
	secret        string
	codeTTL       time.Duration
	sessionTTL    time.Duration
	now           func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	loginCodeRepo repository.LoginCodeRepository,
	pruner *jobs.AuthPruner,
	m mailer.Mailer,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		loginCodeRepo: loginCodeRepo,
		pruner:        pruner,
		mailer:        m,
		secret:        cfg.SessionSecret,
		codeTTL:       cfg.LoginCodeTTL(),
		sessionTTL:    cfg.SessionTTL(),
		now:           time.Now,
	}
}

func (s *AuthService) codeHash(email, code string) string {
	return util.HashWithSecret(s.secret, email+":"+code)
}

// RequestCode emails a fresh login code to a registered address.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	s.pruner.Prune(ctx)

	email = util.NormalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return apperrors.New(apperrors.ErrCodeNotFound, "You are not registered")
	}

	code, err := util.NumericCode(config.LoginCodeDigits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	if err := s.loginCodeRepo.Create(ctx, model.CreateLoginCodeParams{
		UserID:    user.ID,
		CodeHash:  s.codeHash(email, code),
		ExpiresAt: s.now().Add(s.codeTTL),
	}); err != nil {
		return fmt.Errorf("create login code: %w", err)
	}

	if err := s.mailer.SendCode(ctx, email, code); err != nil {
		return apperrors.External("mail", err)
	}
	return nil
}

// VerifyCode consumes a login code and opens a session. Unknown emails and
// wrong codes produce the same error.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (*IssuedSession, error) {
	s.pruner.Prune(ctx)

	email = util.NormalizeEmail(email)
	invalid := apperrors.Unauthorized("Invalid email or code")

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, invalid
	}

	consumed, err := s.loginCodeRepo.Consume(ctx, user.ID, s.codeHash(email, code))
	if err != nil {
		return nil, fmt.Errorf("consume login code: %w", err)
	}
	if !consumed {
		return nil, invalid
	}

	return s.createSession(ctx, user.ID)
}

func (s *AuthService) createSession(ctx context.Context, userID string) (*IssuedSession, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	expiresAt := s.now().Add(s.sessionTTL)
	if _, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		UserID:    userID,
		TokenHash: util.HashWithSecret(s.secret, token),
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &IssuedSession{Token: token, UserID: userID, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session cookie to its user and marks the session
// as seen. Returns nil for unknown or expired tokens.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*SessionUser, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByTokenHash(ctx, util.HashWithSecret(s.secret, token))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if err := s.sessionRepo.Touch(ctx, session.ID); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to touch session")
	}

	owner, err := s.userRepo.FindOwnerByUserID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("find owner: %w", err)
	}
	if owner == nil {
		return nil, nil
	}

	return &SessionUser{UserID: owner.UserID, Email: owner.Email, SessionID: session.ID}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.DeleteByTokenHash(ctx, util.HashWithSecret(s.secret, token))
}
