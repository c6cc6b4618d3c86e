package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/recvault/vault-server-go/internal/model"
)

type LoginCodeRepository interface {
	Create(ctx context.Context, params model.CreateLoginCodeParams) error
	// Consume marks the newest matching live code as used. It reports false
	// when no such code exists or another request consumed it first.
	Consume(ctx context.Context, userID, codeHash string) (bool, error)
	DeleteExpiredOrConsumed(ctx context.Context) (int64, error)
}

type loginCodeRepo struct {
	db *sqlx.DB
}

func NewLoginCodeRepository(db *sqlx.DB) LoginCodeRepository {
	return &loginCodeRepo{db: db}
}

func (r *loginCodeRepo) Create(ctx context.Context, params model.CreateLoginCodeParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_codes (id, user_id, code_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), params.UserID, params.CodeHash, params.ExpiresAt)
	return err
}

func (r *loginCodeRepo) Consume(ctx context.Context, userID, codeHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE login_codes SET consumed_at = NOW()
		WHERE id = (
			SELECT id FROM login_codes
			WHERE user_id = $1 AND code_hash = $2
			AND consumed_at IS NULL AND expires_at > NOW()
			ORDER BY created_at DESC
			LIMIT 1
		)
		AND consumed_at IS NULL
	`, userID, codeHash)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *loginCodeRepo) DeleteExpiredOrConsumed(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM login_codes
		WHERE expires_at <= NOW() OR consumed_at IS NOT NULL
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
