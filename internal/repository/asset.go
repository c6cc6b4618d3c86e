package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/recvault/vault-server-go/internal/model"
)

type AssetRepository interface {
	// FindByDedupKey finds an asset in the package with the same storage file
	// id, or with the same external asset id when one is given.
	FindByDedupKey(ctx context.Context, packageID, storageFileID string, externalAssetID *string) (*model.Asset, error)
	// Create inserts a new asset. A uniqueness clash yields ErrAssetExists.
	Create(ctx context.Context, packageID string, input model.AssetInput) (*model.Asset, error)
	Update(ctx context.Context, id string, input model.AssetInput) error
	ListByPackageIDs(ctx context.Context, packageIDs []string) ([]model.Asset, error)
	// FindForUser returns the asset only when it sits in the user's vault.
	FindForUser(ctx context.Context, userID, assetID string) (*model.Asset, error)
}

type assetRepo struct {
	db *sqlx.DB
}

func NewAssetRepository(db *sqlx.DB) AssetRepository {
	return &assetRepo{db: db}
}

func (r *assetRepo) FindByDedupKey(ctx context.Context, packageID, storageFileID string, externalAssetID *string) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.GetContext(ctx, &asset, `
		SELECT * FROM vault_assets
		WHERE package_id = $1
		AND (storage_file_id = $2 OR ($3::text IS NOT NULL AND external_asset_id = $3))
		ORDER BY created_at
		LIMIT 1
	`, packageID, storageFileID, externalAssetID)
	return HandleNotFound(&asset, err)
}

func (r *assetRepo) Create(ctx context.Context, packageID string, input model.AssetInput) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.GetContext(ctx, &asset, `
		INSERT INTO vault_assets
			(id, package_id, external_asset_id, title, kind, storage_file_id, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, uuid.NewString(), packageID, input.ExternalAssetID, input.Title, input.Kind,
		input.StorageFileID, input.MimeType, input.SizeBytes)
	if isUniqueViolation(err) {
		return nil, ErrAssetExists
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepo) Update(ctx context.Context, id string, input model.AssetInput) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE vault_assets SET
			title = $2,
			kind = $3,
			mime_type = $4,
			size_bytes = $5,
			external_asset_id = $6,
			updated_at = NOW()
		WHERE id = $1
	`, id, input.Title, input.Kind, input.MimeType, input.SizeBytes, input.ExternalAssetID)
	return err
}

func (r *assetRepo) ListByPackageIDs(ctx context.Context, packageIDs []string) ([]model.Asset, error) {
	if len(packageIDs) == 0 {
		return nil, nil
	}
	var assets []model.Asset
	err := r.db.SelectContext(ctx, &assets, `
		SELECT * FROM vault_assets
		WHERE package_id = ANY($1)
		ORDER BY created_at DESC
	`, pq.Array(packageIDs))
	return assets, err
}

func (r *assetRepo) FindForUser(ctx context.Context, userID, assetID string) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.GetContext(ctx, &asset, `
		SELECT a.* FROM vault_assets a
		JOIN vault_packages p ON p.id = a.package_id
		JOIN vaults v ON v.id = p.vault_id
		WHERE a.id = $1 AND v.user_id = $2
	`, assetID, userID)
	return HandleNotFound(&asset, err)
}
