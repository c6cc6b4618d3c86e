package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/storage"
	"github.com/recvault/vault-server-go/internal/util"
)

const (
	FormatCatalogAssign = "catalog_assign"
	FormatDirectAssets  = "direct_assets"
	FormatBookedClass   = "booked_class"

	bookingRequestPrefix = "booking"
)

// InboundAsset is an asset as sent by the booking system. Either
// googleDriveFileId or storageFileId must be present; Drive links are
// accepted and reduced to file ids.
type InboundAsset struct {
	AssetID           *string         `json:"assetId" validate:"omitempty,min=1"`
	Title             string          `json:"title" validate:"required"`
	Kind              model.AssetKind `json:"kind" validate:"required,oneof=VIDEO PDF ZIP"`
	GoogleDriveFileID string          `json:"googleDriveFileId" validate:"required_without=StorageFileID,omitempty,drivefileid"`
	StorageFileID     string          `json:"storageFileId" validate:"required_without=GoogleDriveFileID,omitempty,storagefileid"`
	MimeType          *string         `json:"mimeType" validate:"omitempty,min=2"`
	SizeBytes         *int64          `json:"sizeBytes" validate:"omitempty,gt=0"`
}

func (a InboundAsset) toInput() model.AssetInput {
	raw := a.StorageFileID
	if raw == "" {
		raw = a.GoogleDriveFileID
	}
	return model.AssetInput{
		ExternalAssetID: a.AssetID,
		Title:           a.Title,
		Kind:            a.Kind,
		StorageFileID:   storage.ResolveFileID(raw),
		MimeType:        a.MimeType,
		SizeBytes:       a.SizeBytes,
	}
}

func toAssetInputs(groups ...[]InboundAsset) []model.AssetInput {
	var out []model.AssetInput
	for _, group := range groups {
		for _, a := range group {
			out = append(out, a.toInput())
		}
	}
	return out
}

type CatalogAssignPayload struct {
	Email     string   `json:"email" validate:"required,email"`
	RequestID *string  `json:"requestId" validate:"omitempty,min=1"`
	VideoIDs  []string `json:"videoIds" validate:"omitempty,min=1,dive,required"`
	VideoID   *string  `json:"videoId" validate:"omitempty,min=1"`
	VideoIDs2 []string `json:"video_ids" validate:"omitempty,min=1,dive,required"`
}

func (p CatalogAssignPayload) allVideoIDs() []string {
	ids := append([]string{}, p.VideoIDs...)
	ids = append(ids, p.VideoIDs2...)
	if p.VideoID != nil {
		ids = append(ids, *p.VideoID)
	}
	return ids
}

type DirectAssetsPayload struct {
	Email        string         `json:"email" validate:"required,email"`
	RequestID    *string        `json:"requestId" validate:"omitempty,min=1"`
	PackageTitle string         `json:"packageTitle" validate:"required"`
	Recordings   []InboundAsset `json:"recordings" validate:"dive"`
	Materials    []InboundAsset `json:"materials" validate:"dive"`
}

type ClassInformation struct {
	ID        *int64   `json:"id" validate:"omitempty,gt=0"`
	ClassCode string   `json:"class_code" validate:"required"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
}

type BookedClassItem struct {
	ClassInformation ClassInformation `json:"class_information"`
	Title            string           `json:"title" validate:"required"`
	ClassDate        *string          `json:"class_date" validate:"omitempty,min=1"`
	RequestID        *string          `json:"requestId" validate:"omitempty,min=1"`
	Recordings       []InboundAsset   `json:"recordings" validate:"dive"`
	Materials        []InboundAsset   `json:"materials" validate:"dive"`
}

type BookedClassPayload struct {
	Email       string            `json:"email" validate:"required,email"`
	RequestID   *string           `json:"requestId" validate:"omitempty,min=1"`
	BookedClass []BookedClassItem `json:"booked_class" validate:"required,min=1,dive"`
}

type BookedPackage struct {
	ClassCode   string  `json:"classCode"`
	ClassTitle  string  `json:"classTitle"`
	ClassDate   *string `json:"classDate,omitempty"`
	PackageID   string  `json:"packageId"`
	TotalAssets int     `json:"totalAssets"`
}

type ProvisionResult struct {
	Success       bool   `json:"success"`
	Format        string `json:"format"`
	Email         string `json:"email"`
	VaultLink     string `json:"vaultLink"`
	VaultSlug     string `json:"vaultSlug,omitempty"`
	PackageID     string `json:"packageId,omitempty"`
	TotalAssets   *int   `json:"totalAssets,omitempty"`
	TotalPackages *int   `json:"totalPackages,omitempty"`
	Packages      any    `json:"packages,omitempty"`
	Message       string `json:"message"`
}

// ProvisionErrors is the validation detail returned when a payload matches
// none of the accepted formats.
type ProvisionErrors struct {
	AcceptedFormats     []string     `json:"acceptedFormats"`
	CatalogAssignErrors []FieldError `json:"catalogAssignErrors"`
	DirectAssetErrors   []FieldError `json:"directAssetErrors"`
	BookedClassErrors   []FieldError `json:"bookedClassErrors"`
}

var acceptedProvisionFormats = []string{
	"catalog_assign: { email, requestId?, videoIds[] | videoId | video_ids[] }",
	"direct_assets: { email, requestId?, packageTitle, recordings[], materials[] }",
	"booked_class: { email, requestId?, booked_class[] }",
}

type ProvisionService struct {
	vaults    *VaultService
	catalog   *CatalogService
	validator *Validator
	appURL    string
}

func NewProvisionService(vaults *VaultService, catalog *CatalogService, validator *Validator, appURL string) *ProvisionService {
	return &ProvisionService{
		vaults:    vaults,
		catalog:   catalog,
		validator: validator,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

func (s *ProvisionService) vaultLink() string {
	return s.appURL + "/vault"
}

// decodeVariant unmarshals body into dst and validates it. A JSON type
// mismatch counts as a validation failure for that variant only.
func (s *ProvisionService) decodeVariant(body []byte, dst any) []FieldError {
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []FieldError{{Path: typeErr.Field, Message: "has the wrong type"}}
		}
		return []FieldError{{Path: "(root)", Message: err.Error()}}
	}
	return s.validator.Struct(dst)
}

// Provision resolves the payload against catalog_assign, direct_assets and
// booked_class in that order and applies the first one that validates.
func (s *ProvisionService) Provision(ctx context.Context, body []byte) (*ProvisionResult, error) {
	if !json.Valid(body) {
		return nil, apperrors.ValidationError("Invalid JSON body")
	}

	var assign CatalogAssignPayload
	assignErrs := s.decodeVariant(body, &assign)
	if len(assignErrs) == 0 && len(util.DedupeTrimmed(assign.allVideoIDs())) == 0 {
		assignErrs = []FieldError{{Path: "(root)", Message: "Provide at least one video ID in videoId, videoIds, or video_ids"}}
	}
	if len(assignErrs) == 0 {
		return s.provisionCatalog(ctx, assign)
	}

	var direct DirectAssetsPayload
	directErrs := s.decodeVariant(body, &direct)
	if len(directErrs) == 0 {
		return s.provisionDirect(ctx, direct)
	}

	var booked BookedClassPayload
	bookedErrs := s.decodeVariant(body, &booked)
	if len(bookedErrs) == 0 {
		return s.provisionBooked(ctx, booked)
	}

	return nil, apperrors.ValidationError("Invalid request payload").WithDetails(ProvisionErrors{
		AcceptedFormats:     acceptedProvisionFormats,
		CatalogAssignErrors: assignErrs,
		DirectAssetErrors:   directErrs,
		BookedClassErrors:   bookedErrs,
	})
}

func (s *ProvisionService) provisionCatalog(ctx context.Context, p CatalogAssignPayload) (*ProvisionResult, error) {
	result, err := s.catalog.Assign(ctx, AssignRequest{
		Email:     p.Email,
		RequestID: p.RequestID,
		VideoIDs:  p.allVideoIDs(),
	})
	if err != nil {
		return nil, err
	}

	total := len(result.Packages)
	return &ProvisionResult{
		Success:       true,
		Format:        FormatCatalogAssign,
		Email:         result.Owner.Email,
		VaultLink:     s.vaultLink(),
		VaultSlug:     result.Owner.Slug,
		TotalPackages: &total,
		Packages:      result.Packages,
		Message:       "Catalog videos assigned successfully.",
	}, nil
}

func (s *ProvisionService) provisionDirect(ctx context.Context, p DirectAssetsPayload) (*ProvisionResult, error) {
	result, err := s.vaults.IngestPackage(ctx, IngestPayload{
		Email:        p.Email,
		RequestID:    p.RequestID,
		PackageTitle: p.PackageTitle,
		Assets:       toAssetInputs(p.Recordings, p.Materials),
	})
	if err != nil {
		return nil, err
	}

	return &ProvisionResult{
		Success:     true,
		Format:      FormatDirectAssets,
		Email:       result.Owner.Email,
		VaultLink:   s.vaultLink(),
		VaultSlug:   result.Owner.Slug,
		PackageID:   result.PackageID,
		TotalAssets: &result.TotalAssets,
		Message:     "Vault provisioned/updated successfully.",
	}, nil
}

func (s *ProvisionService) provisionBooked(ctx context.Context, p BookedClassPayload) (*ProvisionResult, error) {
	// Reject before writing anything if any class carries no media.
	for i, item := range p.BookedClass {
		if len(item.Recordings)+len(item.Materials) == 0 {
			return nil, apperrors.ValidationError("Each booked_class entry must include recordings or materials").
				WithDetails([]FieldError{{
					Path:    "booked_class[" + strconv.Itoa(i) + "]",
					Message: "class " + item.ClassInformation.ClassCode + " has no recordings or materials",
				}})
		}
	}

	prefix := bookingRequestPrefix
	if p.RequestID != nil {
		prefix = *p.RequestID
	}

	var email string
	packages := make([]BookedPackage, 0, len(p.BookedClass))
	for _, item := range p.BookedClass {
		info := item.ClassInformation

		requestID := prefix + ":" + info.ClassCode + ":na"
		if info.ID != nil {
			requestID = prefix + ":" + info.ClassCode + ":" + strconv.FormatInt(*info.ID, 10)
		}
		if item.RequestID != nil {
			requestID = *item.RequestID
		}

		classCode := info.ClassCode
		result, err := s.vaults.IngestPackage(ctx, IngestPayload{
			Email:        p.Email,
			RequestID:    &requestID,
			PackageTitle: info.ClassCode + " - " + item.Title,
			ClassCode:    &classCode,
			ClassDate:    item.ClassDate,
			ClassPrice:   info.Price,
			Assets:       toAssetInputs(item.Recordings, item.Materials),
		})
		if err != nil {
			return nil, err
		}
		email = result.Owner.Email

		packages = append(packages, BookedPackage{
			ClassCode:   info.ClassCode,
			ClassTitle:  item.Title,
			ClassDate:   item.ClassDate,
			PackageID:   result.PackageID,
			TotalAssets: result.TotalAssets,
		})
	}

	total := len(packages)
	return &ProvisionResult{
		Success:       true,
		Format:        FormatBookedClass,
		Email:         email,
		VaultLink:     s.vaultLink(),
		TotalPackages: &total,
		Packages:      packages,
		Message:       "Vault provisioned/updated successfully from booked_class payload.",
	}, nil
}
