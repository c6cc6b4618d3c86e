package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/recvault/vault-server-go/internal/database"
	"github.com/recvault/vault-server-go/internal/model"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindOwnerByEmail(ctx context.Context, email string) (*model.VaultOwner, error)
	FindOwnerByUserID(ctx context.Context, userID string) (*model.VaultOwner, error)
	// CreateWithVault inserts a user and its vault in one transaction. It
	// reports false without error when the email is already taken.
	CreateWithVault(ctx context.Context, params model.CreateUserWithVaultParams) (bool, error)
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

const selectVaultOwner = `
	SELECT u.id AS user_id, u.email, v.id AS vault_id, v.slug
	FROM users u
	JOIN vaults v ON v.user_id = u.id
`

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindOwnerByEmail(ctx context.Context, email string) (*model.VaultOwner, error) {
	var owner model.VaultOwner
	err := r.db.GetContext(ctx, &owner, selectVaultOwner+`WHERE u.email = $1`, email)
	return HandleNotFound(&owner, err)
}

func (r *userRepo) FindOwnerByUserID(ctx context.Context, userID string) (*model.VaultOwner, error) {
	var owner model.VaultOwner
	err := r.db.GetContext(ctx, &owner, selectVaultOwner+`WHERE u.id = $1`, userID)
	return HandleNotFound(&owner, err)
}

func (r *userRepo) CreateWithVault(ctx context.Context, params model.CreateUserWithVaultParams) (bool, error) {
	created := false
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		userID := uuid.NewString()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email)
			VALUES ($1, $2)
			ON CONFLICT (email) DO NOTHING
		`, userID, params.Email)
		if err != nil {
			return err
		}
		inserted, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if inserted == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vaults (id, user_id, slug)
			VALUES ($1, $2, $3)
		`, uuid.NewString(), userID, params.Slug); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
