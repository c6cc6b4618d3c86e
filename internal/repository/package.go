package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/recvault/vault-server-go/internal/model"
)

type PackageRepository interface {
	// UpsertByExternalRequestID creates the package or updates it in place
	// when the request id already exists in the same vault. A request id held
	// by another vault yields ErrRequestIDConflict.
	UpsertByExternalRequestID(ctx context.Context, params model.UpsertPackageParams) (*model.Package, error)
	Create(ctx context.Context, params model.CreatePackageParams) (*model.Package, error)
	UpdateDetails(ctx context.Context, id string, details model.PackageDetails) error
	ListByVaultID(ctx context.Context, vaultID string) ([]model.Package, error)
	// ListByRequestIDSuffix returns packages whose external request id ends
	// with ":" + suffix.
	ListByRequestIDSuffix(ctx context.Context, suffix string) ([]model.Package, error)
}

type packageRepo struct {
	db *sqlx.DB
}

func NewPackageRepository(db *sqlx.DB) PackageRepository {
	return &packageRepo{db: db}
}

func (r *packageRepo) UpsertByExternalRequestID(ctx context.Context, params model.UpsertPackageParams) (*model.Package, error) {
	var pkg model.Package
	err := r.db.GetContext(ctx, &pkg, `
		INSERT INTO vault_packages
			(id, vault_id, external_request_id, title, class_code, class_date, class_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_request_id) DO UPDATE SET
			title = EXCLUDED.title,
			class_code = EXCLUDED.class_code,
			class_date = EXCLUDED.class_date,
			class_price = EXCLUDED.class_price,
			updated_at = NOW()
		WHERE vault_packages.vault_id = EXCLUDED.vault_id
		RETURNING *
	`, uuid.NewString(), params.VaultID, params.ExternalRequestID, params.Title,
		params.ClassCode, params.ClassDate, params.ClassPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestIDConflict
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepo) Create(ctx context.Context, params model.CreatePackageParams) (*model.Package, error) {
	var pkg model.Package
	err := r.db.GetContext(ctx, &pkg, `
		INSERT INTO vault_packages
			(id, vault_id, title, class_code, class_date, class_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, uuid.NewString(), params.VaultID, params.Title, params.ClassCode, params.ClassDate, params.ClassPrice)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepo) UpdateDetails(ctx context.Context, id string, details model.PackageDetails) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE vault_packages SET
			title = $2,
			class_code = $3,
			class_date = $4,
			class_price = $5,
			updated_at = NOW()
		WHERE id = $1
	`, id, details.Title, details.ClassCode, details.ClassDate, details.ClassPrice)
	return err
}

func (r *packageRepo) ListByVaultID(ctx context.Context, vaultID string) ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT * FROM vault_packages
		WHERE vault_id = $1
		ORDER BY created_at DESC
	`, vaultID)
	return pkgs, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *packageRepo) ListByRequestIDSuffix(ctx context.Context, suffix string) ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT * FROM vault_packages
		WHERE external_request_id LIKE $1 ESCAPE '\'
		ORDER BY created_at
	`, "%:"+likeEscaper.Replace(suffix))
	return pkgs, err
}
