package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/repository"
	"github.com/recvault/vault-server-go/internal/util"
)

// IngestPayload is one package worth of assets destined for a vault.
// RequestID, when set, makes the call idempotent.
type IngestPayload struct {
	Email        string
	RequestID    *string
	PackageTitle string
	ClassCode    *string
	ClassDate    *string
	ClassPrice   *float64
	Assets       []model.AssetInput
}

type IngestResult struct {
	Owner       model.VaultOwner `json:"owner"`
	PackageID   string           `json:"packageId"`
	TotalAssets int              `json:"totalAssets"`
}

type VaultService struct {
	userRepo    repository.UserRepository
	packageRepo repository.PackageRepository
	assetRepo   repository.AssetRepository
}

func NewVaultService(
	userRepo repository.UserRepository,
	packageRepo repository.PackageRepository,
	assetRepo repository.AssetRepository,
) *VaultService {
	return &VaultService{
		userRepo:    userRepo,
		packageRepo: packageRepo,
		assetRepo:   assetRepo,
	}
}

// UpsertUserAndVault returns the owner for email, creating the user and its
// vault on first sight. An existing vault keeps its slug.
func (s *VaultService) UpsertUserAndVault(ctx context.Context, email string) (*model.VaultOwner, bool, error) {
	normalized := util.NormalizeEmail(email)
	if normalized == "" {
		return nil, false, apperrors.MissingRequired("email")
	}

	owner, err := s.userRepo.FindOwnerByEmail(ctx, normalized)
	if err != nil {
		return nil, false, fmt.Errorf("find owner: %w", err)
	}
	if owner != nil {
		return owner, false, nil
	}

	slug, err := util.GenerateSlug()
	if err != nil {
		return nil, false, fmt.Errorf("generate slug: %w", err)
	}

	created, err := s.userRepo.CreateWithVault(ctx, model.CreateUserWithVaultParams{
		Email: normalized,
		Slug:  slug,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	// A concurrent creator may have won; either way the row exists now.
	owner, err = s.userRepo.FindOwnerByEmail(ctx, normalized)
	if err != nil {
		return nil, false, fmt.Errorf("find owner: %w", err)
	}
	if owner == nil {
		return nil, false, fmt.Errorf("owner for %s missing after create", normalized)
	}

	if created {
		log.Info().Str("userId", owner.UserID).Str("vaultId", owner.VaultID).Msg("vault created")
	}
	return owner, created, nil
}

func (s *VaultService) IngestPackage(ctx context.Context, payload IngestPayload) (*IngestResult, error) {
	owner, _, err := s.UpsertUserAndVault(ctx, payload.Email)
	if err != nil {
		return nil, err
	}

	details := model.PackageDetails{
		Title:      payload.PackageTitle,
		ClassCode:  payload.ClassCode,
		ClassDate:  payload.ClassDate,
		ClassPrice: payload.ClassPrice,
	}

	var pkg *model.Package
	if payload.RequestID != nil && *payload.RequestID != "" {
		pkg, err = s.packageRepo.UpsertByExternalRequestID(ctx, model.UpsertPackageParams{
			VaultID:           owner.VaultID,
			ExternalRequestID: *payload.RequestID,
			PackageDetails:    details,
		})
		if errors.Is(err, repository.ErrRequestIDConflict) {
			return nil, apperrors.Conflict("Request ID is already used by another vault")
		}
	} else {
		pkg, err = s.packageRepo.Create(ctx, model.CreatePackageParams{
			VaultID:        owner.VaultID,
			PackageDetails: details,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("upsert package: %w", err)
	}

	if _, err := s.upsertAssets(ctx, pkg.ID, payload.Assets); err != nil {
		return nil, err
	}

	return &IngestResult{
		Owner:       *owner,
		PackageID:   pkg.ID,
		TotalAssets: len(payload.Assets),
	}, nil
}

// upsertAssets places each asset in the package, updating any asset that
// shares its storage file id or external id.
func (s *VaultService) upsertAssets(ctx context.Context, packageID string, assets []model.AssetInput) (int, error) {
	count := 0
	for _, input := range assets {
		if err := s.upsertAsset(ctx, packageID, input); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *VaultService) upsertAsset(ctx context.Context, packageID string, input model.AssetInput) error {
	existing, err := s.assetRepo.FindByDedupKey(ctx, packageID, input.StorageFileID, input.ExternalAssetID)
	if err != nil {
		return fmt.Errorf("find asset: %w", err)
	}
	if existing != nil {
		if err := s.assetRepo.Update(ctx, existing.ID, input); err != nil {
			return fmt.Errorf("update asset: %w", err)
		}
		return nil
	}

	_, err = s.assetRepo.Create(ctx, packageID, input)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrAssetExists) {
		return fmt.Errorf("create asset: %w", err)
	}

	// Lost an insert race; the winner's row is now visible.
	existing, err = s.assetRepo.FindByDedupKey(ctx, packageID, input.StorageFileID, input.ExternalAssetID)
	if err != nil {
		return fmt.Errorf("find asset: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("asset in package %s vanished after conflict", packageID)
	}
	if err := s.assetRepo.Update(ctx, existing.ID, input); err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

// GetVault builds the vault view for a user, packages and assets newest
// first. Returns nil when the user has no vault.
func (s *VaultService) GetVault(ctx context.Context, userID string) (*model.VaultView, error) {
	owner, err := s.userRepo.FindOwnerByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find owner: %w", err)
	}
	if owner == nil {
		return nil, nil
	}

	packages, err := s.packageRepo.ListByVaultID(ctx, owner.VaultID)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	ids := make([]string, len(packages))
	for i, p := range packages {
		ids[i] = p.ID
	}

	byPackage := make(map[string][]model.Asset, len(packages))
	if len(ids) > 0 {
		assets, err := s.assetRepo.ListByPackageIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}
		for _, a := range assets {
			byPackage[a.PackageID] = append(byPackage[a.PackageID], a)
		}
	}

	view := &model.VaultView{
		VaultID:  owner.VaultID,
		Slug:     owner.Slug,
		Email:    owner.Email,
		Packages: make([]model.PackageWithAssets, 0, len(packages)),
	}
	for _, p := range packages {
		assets := byPackage[p.ID]
		if assets == nil {
			assets = []model.Asset{}
		}
		view.Packages = append(view.Packages, model.PackageWithAssets{Package: p, Assets: assets})
	}
	return view, nil
}
