package model

import "time"

// CatalogEntry is a reusable template describing one recorded class.
type CatalogEntry struct {
	ID            string            `db:"id" json:"id"`
	VideoID       string            `db:"video_id" json:"videoId"`
	ClassCode     string            `db:"class_code" json:"classCode"`
	ClassTitle    string            `db:"class_title" json:"classTitle"`
	ClassDate     *string           `db:"class_date" json:"classDate,omitempty"`
	ClassPrice    *float64          `db:"class_price" json:"classPrice,omitempty"`
	StorageFileID string            `db:"storage_file_id" json:"storageFileId"`
	MimeType      *string           `db:"mime_type" json:"mimeType,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updatedAt"`
	Materials     []CatalogMaterial `db:"-" json:"materials"`
}

type CatalogMaterial struct {
	EntryID       string    `db:"entry_id" json:"-"`
	Position      int       `db:"position" json:"position"`
	AssetID       string    `db:"asset_id" json:"assetId"`
	Title         string    `db:"title" json:"title"`
	Kind          AssetKind `db:"kind" json:"kind"`
	StorageFileID string    `db:"storage_file_id" json:"storageFileId"`
	MimeType      *string   `db:"mime_type" json:"mimeType,omitempty"`
	SizeBytes     *int64    `db:"size_bytes" json:"sizeBytes,omitempty"`
}

type UpsertCatalogEntryParams struct {
	VideoID       string
	ClassCode     string
	ClassTitle    string
	ClassDate     *string
	ClassPrice    *float64
	StorageFileID string
	MimeType      *string
	Materials     []CatalogMaterial
}
