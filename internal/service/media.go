package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/repository"
	"github.com/recvault/vault-server-go/internal/signing"
	"github.com/recvault/vault-server-go/internal/storage"
	"github.com/recvault/vault-server-go/internal/util"
)

// ClientFingerprint identifies the requesting client for stream tokens.
type ClientFingerprint struct {
	UserAgent string
	IP        string
}

type StreamTicket struct {
	Success          bool   `json:"success"`
	StreamURL        string `json:"streamUrl"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// MediaStream is an open upstream object plus the response headers the
// proxy adds. The caller must close Object.Body.
type MediaStream struct {
	Object             *storage.Object
	ContentType        string
	ContentDisposition string
}

type MediaService struct {
	assetRepo repository.AssetRepository
	tokens    *signing.StreamTokens
	provider  storage.Provider
	ttl       time.Duration
}

func NewMediaService(
	assetRepo repository.AssetRepository,
	tokens *signing.StreamTokens,
	provider storage.Provider,
	ttl time.Duration,
) *MediaService {
	return &MediaService{
		assetRepo: assetRepo,
		tokens:    tokens,
		provider:  provider,
		ttl:       ttl,
	}
}

// ownedAsset loads the asset through the user's vault and checks its kind.
// Absent, foreign and wrong-kind assets are all NotFound.
func (s *MediaService) ownedAsset(ctx context.Context, userID, assetID string, want func(model.AssetKind) bool) (*model.Asset, error) {
	asset, err := s.assetRepo.FindForUser(ctx, userID, assetID)
	if err != nil {
		return nil, fmt.Errorf("find asset: %w", err)
	}
	if asset == nil || !want(asset.Kind) {
		return nil, apperrors.NotFound("Asset")
	}
	return asset, nil
}

func isVideo(k model.AssetKind) bool    { return k == model.AssetKindVideo }
func isMaterial(k model.AssetKind) bool { return k == model.AssetKindPDF || k == model.AssetKindZIP }

func (s *MediaService) IssueStreamTicket(ctx context.Context, userID, assetID string, client ClientFingerprint) (*StreamTicket, error) {
	if _, err := s.ownedAsset(ctx, userID, assetID, isVideo); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(signing.StreamClaims{
		AssetID:   assetID,
		UserID:    userID,
		UserAgent: client.UserAgent,
		IP:        client.IP,
	}, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue stream token: %w", err)
	}

	return &StreamTicket{
		Success:          true,
		StreamURL:        "/api/stream/" + url.PathEscape(assetID) + "?token=" + url.QueryEscape(token),
		ExpiresInSeconds: int(s.ttl.Seconds()),
	}, nil
}

// OpenStream verifies the stream token against the current client and opens
// the video upstream, forwarding rangeHeader.
func (s *MediaService) OpenStream(ctx context.Context, userID, assetID, token string, client ClientFingerprint, rangeHeader string) (*MediaStream, error) {
	valid := s.tokens.Verify(token, signing.StreamClaims{
		AssetID:   assetID,
		UserID:    userID,
		UserAgent: client.UserAgent,
		IP:        client.IP,
	})
	if !valid {
		return nil, apperrors.InvalidToken("Forbidden stream token")
	}

	asset, err := s.ownedAsset(ctx, userID, assetID, isVideo)
	if err != nil {
		return nil, err
	}

	obj, err := s.provider.Open(ctx, asset.StorageFileID, rangeHeader)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	return &MediaStream{
		Object:             obj,
		ContentType:        contentType(obj, asset, "video/mp4"),
		ContentDisposition: `inline; filename="` + util.SafeASCIIFilename(asset.Title, "video") + `"`,
	}, nil
}

// OpenMaterial opens a PDF for inline display or a ZIP as a download.
func (s *MediaService) OpenMaterial(ctx context.Context, userID, assetID string) (*MediaStream, error) {
	asset, err := s.ownedAsset(ctx, userID, assetID, isMaterial)
	if err != nil {
		return nil, err
	}

	obj, err := s.provider.Open(ctx, asset.StorageFileID, "")
	if err != nil {
		return nil, fmt.Errorf("open material: %w", err)
	}

	disposition, ext, fallback := "attachment", "zip", "application/zip"
	if asset.Kind == model.AssetKindPDF {
		disposition, ext, fallback = "inline", "pdf", "application/pdf"
	}
	filename := util.SafeASCIIFilename(asset.Title, "material") + "." + ext

	return &MediaStream{
		Object:             obj,
		ContentType:        contentType(obj, asset, fallback),
		ContentDisposition: disposition + `; filename="` + filename + `"`,
	}, nil
}

func contentType(obj *storage.Object, asset *model.Asset, fallback string) string {
	if obj.ContentType != "" {
		return obj.ContentType
	}
	if asset.MimeType != nil && *asset.MimeType != "" {
		return *asset.MimeType
	}
	return fallback
}
