package model

import "time"

type AssetKind string

const (
	AssetKindVideo AssetKind = "VIDEO"
	AssetKindPDF   AssetKind = "PDF"
	AssetKindZIP   AssetKind = "ZIP"
)

func (k AssetKind) Valid() bool {
	switch k {
	case AssetKindVideo, AssetKindPDF, AssetKindZIP:
		return true
	}
	return false
}

type Package struct {
	ID                string    `db:"id" json:"id"`
	VaultID           string    `db:"vault_id" json:"-"`
	ExternalRequestID *string   `db:"external_request_id" json:"externalRequestId,omitempty"`
	Title             string    `db:"title" json:"title"`
	ClassCode         *string   `db:"class_code" json:"classCode,omitempty"`
	ClassDate         *string   `db:"class_date" json:"classDate,omitempty"`
	ClassPrice        *float64  `db:"class_price" json:"classPrice,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Asset is a file in a package. StorageFileID never leaves the server.
type Asset struct {
	ID              string    `db:"id" json:"id"`
	PackageID       string    `db:"package_id" json:"packageId"`
	ExternalAssetID *string   `db:"external_asset_id" json:"-"`
	Title           string    `db:"title" json:"title"`
	Kind            AssetKind `db:"kind" json:"kind"`
	StorageFileID   string    `db:"storage_file_id" json:"-"`
	MimeType        *string   `db:"mime_type" json:"mimeType,omitempty"`
	SizeBytes       *int64    `db:"size_bytes" json:"sizeBytes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

type PackageDetails struct {
	Title      string
	ClassCode  *string
	ClassDate  *string
	ClassPrice *float64
}

type UpsertPackageParams struct {
	VaultID           string
	ExternalRequestID string
	PackageDetails
}

type CreatePackageParams struct {
	VaultID string
	PackageDetails
}

// AssetInput describes an asset to place in a package. It is also the shape
// of a catalog material.
type AssetInput struct {
	ExternalAssetID *string
	Title           string
	Kind            AssetKind
	StorageFileID   string
	MimeType        *string
	SizeBytes       *int64
}

type PackageWithAssets struct {
	Package
	Assets []Asset `json:"assets"`
}

type VaultView struct {
	VaultID  string              `json:"vaultId"`
	Slug     string              `json:"slug"`
	Email    string              `json:"email"`
	Packages []PackageWithAssets `json:"packages"`
}
