package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/recvault/vault-server-go/internal/database"
	"github.com/recvault/vault-server-go/internal/model"
)

type CatalogRepository interface {
	// Upsert writes the entry keyed by video id and replaces its materials,
	// all in one transaction.
	Upsert(ctx context.Context, params model.UpsertCatalogEntryParams) (*model.CatalogEntry, error)
	FindByVideoIDs(ctx context.Context, videoIDs []string) ([]model.CatalogEntry, error)
	List(ctx context.Context, limit int) ([]model.CatalogEntry, error)
}

type catalogRepo struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) Upsert(ctx context.Context, params model.UpsertCatalogEntryParams) (*model.CatalogEntry, error) {
	var entry model.CatalogEntry
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &entry, `
			INSERT INTO catalog_entries
				(id, video_id, class_code, class_title, class_date, class_price, storage_file_id, mime_type)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (video_id) DO UPDATE SET
				class_code = EXCLUDED.class_code,
				class_title = EXCLUDED.class_title,
				class_date = EXCLUDED.class_date,
				class_price = EXCLUDED.class_price,
				storage_file_id = EXCLUDED.storage_file_id,
				mime_type = EXCLUDED.mime_type,
				updated_at = NOW()
			RETURNING *
		`, uuid.NewString(), params.VideoID, params.ClassCode, params.ClassTitle, params.ClassDate,
			params.ClassPrice, params.StorageFileID, params.MimeType)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_materials WHERE entry_id = $1`, entry.ID); err != nil {
			return err
		}

		entry.Materials = make([]model.CatalogMaterial, 0, len(params.Materials))
		for _, m := range params.Materials {
			m.EntryID = entry.ID
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO catalog_materials
					(entry_id, position, asset_id, title, kind, storage_file_id, mime_type, size_bytes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, m.EntryID, m.Position, m.AssetID, m.Title, m.Kind, m.StorageFileID, m.MimeType, m.SizeBytes); err != nil {
				return err
			}
			entry.Materials = append(entry.Materials, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *catalogRepo) FindByVideoIDs(ctx context.Context, videoIDs []string) ([]model.CatalogEntry, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	var entries []model.CatalogEntry
	if err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM catalog_entries WHERE video_id = ANY($1)
	`, pq.Array(videoIDs)); err != nil {
		return nil, err
	}
	return entries, r.attachMaterials(ctx, entries)
}

func (r *catalogRepo) List(ctx context.Context, limit int) ([]model.CatalogEntry, error) {
	var entries []model.CatalogEntry
	if err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM catalog_entries
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit); err != nil {
		return nil, err
	}
	return entries, r.attachMaterials(ctx, entries)
}

func (r *catalogRepo) attachMaterials(ctx context.Context, entries []model.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	var materials []model.CatalogMaterial
	if err := r.db.SelectContext(ctx, &materials, `
		SELECT * FROM catalog_materials
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, position
	`, pq.Array(ids)); err != nil {
		return err
	}

	byEntry := make(map[string][]model.CatalogMaterial, len(entries))
	for _, m := range materials {
		byEntry[m.EntryID] = append(byEntry[m.EntryID], m)
	}
	for i := range entries {
		entries[i].Materials = byEntry[entries[i].ID]
		if entries[i].Materials == nil {
			entries[i].Materials = []model.CatalogMaterial{}
		}
	}
	return nil
}
