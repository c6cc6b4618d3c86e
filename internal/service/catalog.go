package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/repository"
	"github.com/recvault/vault-server-go/internal/util"
)

const (
	catalogRequestPrefix = "catalog"
	defaultVideoMimeType = "video/mp4"
)

type AssignRequest struct {
	Email     string
	RequestID *string
	VideoIDs  []string
}

type AssignedPackage struct {
	VideoID     string `json:"videoId"`
	PackageID   string `json:"packageId"`
	TotalAssets int    `json:"totalAssets"`
	ClassCode   string `json:"classCode"`
	ClassTitle  string `json:"classTitle"`
}

type AssignResult struct {
	Owner    model.VaultOwner  `json:"owner"`
	Packages []AssignedPackage `json:"packages"`
}

type SyncResult struct {
	UpdatedPackages int `json:"updatedPackages"`
	UpsertedAssets  int `json:"upsertedAssets"`
}

type CatalogService struct {
	catalogRepo repository.CatalogRepository
	packageRepo repository.PackageRepository
	vaults      *VaultService
}

func NewCatalogService(
	catalogRepo repository.CatalogRepository,
	packageRepo repository.PackageRepository,
	vaults *VaultService,
) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		packageRepo: packageRepo,
		vaults:      vaults,
	}
}

// UpsertEntry writes the catalog entry and pushes the change to every
// package already provisioned from it.
func (s *CatalogService) UpsertEntry(ctx context.Context, params model.UpsertCatalogEntryParams) (*model.CatalogEntry, *SyncResult, error) {
	params.VideoID = strings.TrimSpace(params.VideoID)
	if params.VideoID == "" {
		return nil, nil, apperrors.MissingRequired("videoId")
	}

	for i := range params.Materials {
		m := &params.Materials[i]
		m.Position = i + 1
		m.AssetID = strings.TrimSpace(m.AssetID)
		if m.AssetID == "" {
			m.AssetID = params.VideoID + ":mat:" + strconv.Itoa(i+1)
		}
	}

	entry, err := s.catalogRepo.Upsert(ctx, params)
	if err != nil {
		return nil, nil, fmt.Errorf("upsert catalog entry: %w", err)
	}

	sync, err := s.Sync(ctx, entry.VideoID)
	if err != nil {
		return nil, nil, err
	}
	return entry, sync, nil
}

func (s *CatalogService) List(ctx context.Context, limit int) ([]model.CatalogEntry, error) {
	if limit <= 0 {
		limit = config.CatalogListLimit
	}
	entries, err := s.catalogRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	if entries == nil {
		entries = []model.CatalogEntry{}
	}
	return entries, nil
}

// Assign provisions one package per catalog video into the email's vault.
// Every id is resolved before anything is written; if any is unknown the
// call fails with the missing ids and no user, vault or package is touched.
func (s *CatalogService) Assign(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	requested := util.DedupeTrimmed(req.VideoIDs)
	if len(requested) == 0 {
		return nil, apperrors.ValidationError("At least one video ID is required")
	}

	entries, err := s.catalogRepo.FindByVideoIDs(ctx, requested)
	if err != nil {
		return nil, fmt.Errorf("find catalog entries: %w", err)
	}

	byID := make(map[string]model.CatalogEntry, len(entries))
	for _, e := range entries {
		byID[e.VideoID] = e
	}

	var missing []string
	for _, id := range requested {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.PreconditionFailed("Unknown video IDs: "+strings.Join(missing, ", ")).
			WithDetails(map[string][]string{"missingVideoIds": missing})
	}

	owner, _, err := s.vaults.UpsertUserAndVault(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	prefix := catalogRequestPrefix
	if req.RequestID != nil && *req.RequestID != "" {
		prefix = *req.RequestID
	}

	result := &AssignResult{Owner: *owner, Packages: make([]AssignedPackage, 0, len(requested))}
	for _, id := range requested {
		entry := byID[id]
		requestID := prefix + ":" + owner.Email + ":" + entry.VideoID
		classCode := entry.ClassCode

		ingested, err := s.vaults.IngestPackage(ctx, IngestPayload{
			Email:        owner.Email,
			RequestID:    &requestID,
			PackageTitle: catalogPackageTitle(entry),
			ClassCode:    &classCode,
			ClassDate:    entry.ClassDate,
			ClassPrice:   entry.ClassPrice,
			Assets:       catalogAssets(entry),
		})
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", entry.VideoID, err)
		}

		result.Packages = append(result.Packages, AssignedPackage{
			VideoID:     entry.VideoID,
			PackageID:   ingested.PackageID,
			TotalAssets: ingested.TotalAssets,
			ClassCode:   entry.ClassCode,
			ClassTitle:  entry.ClassTitle,
		})
	}

	log.Info().
		Str("userId", owner.UserID).
		Int("packages", len(result.Packages)).
		Msg("catalog videos assigned")

	return result, nil
}

// Sync re-applies a catalog entry to every package whose request id ends
// in ":<videoId>".
func (s *CatalogService) Sync(ctx context.Context, videoID string) (*SyncResult, error) {
	entries, err := s.catalogRepo.FindByVideoIDs(ctx, []string{videoID})
	if err != nil {
		return nil, fmt.Errorf("find catalog entry: %w", err)
	}
	if len(entries) == 0 {
		return &SyncResult{}, nil
	}
	entry := entries[0]

	packages, err := s.packageRepo.ListByRequestIDSuffix(ctx, entry.VideoID)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	classCode := entry.ClassCode
	details := model.PackageDetails{
		Title:      catalogPackageTitle(entry),
		ClassCode:  &classCode,
		ClassDate:  entry.ClassDate,
		ClassPrice: entry.ClassPrice,
	}
	assets := catalogAssets(entry)

	result := &SyncResult{}
	for _, pkg := range packages {
		if err := s.packageRepo.UpdateDetails(ctx, pkg.ID, details); err != nil {
			return nil, fmt.Errorf("update package %s: %w", pkg.ID, err)
		}
		n, err := s.vaults.upsertAssets(ctx, pkg.ID, assets)
		result.UpsertedAssets += n
		if err != nil {
			return nil, err
		}
		result.UpdatedPackages++
	}

	if result.UpdatedPackages > 0 {
		log.Info().
			Str("videoId", entry.VideoID).
			Int("packages", result.UpdatedPackages).
			Int("assets", result.UpsertedAssets).
			Msg("catalog entry synced")
	}
	return result, nil
}

func catalogPackageTitle(entry model.CatalogEntry) string {
	return entry.ClassCode + " - " + entry.ClassTitle
}

// catalogAssets expands an entry into its recording plus materials.
func catalogAssets(entry model.CatalogEntry) []model.AssetInput {
	videoID := entry.VideoID + ":video"
	mime := defaultVideoMimeType
	if entry.MimeType != nil && *entry.MimeType != "" {
		mime = *entry.MimeType
	}

	assets := make([]model.AssetInput, 0, 1+len(entry.Materials))
	assets = append(assets, model.AssetInput{
		ExternalAssetID: &videoID,
		Title:           entry.ClassTitle,
		Kind:            model.AssetKindVideo,
		StorageFileID:   entry.StorageFileID,
		MimeType:        &mime,
	})
	for _, m := range entry.Materials {
		assetID := m.AssetID
		assets = append(assets, model.AssetInput{
			ExternalAssetID: &assetID,
			Title:           m.Title,
			Kind:            m.Kind,
			StorageFileID:   m.StorageFileID,
			MimeType:        m.MimeType,
			SizeBytes:       m.SizeBytes,
		})
	}
	return assets
}
