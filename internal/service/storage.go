package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/recvault/vault-server-go/internal/config"
	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/repository"
	"github.com/recvault/vault-server-go/internal/storage"
	"github.com/recvault/vault-server-go/internal/util"
)

// DriveCredentials reads and writes the Drive connection kept in app
// settings. The refresh token is sealed with the configured encryption key.
type DriveCredentials struct {
	settings repository.SettingRepository
	key      string
	fallback string
	now      func() time.Time
}

func NewDriveCredentials(settings repository.SettingRepository, cfg *config.Config) *DriveCredentials {
	return &DriveCredentials{
		settings: settings,
		key:      cfg.EncryptionKey,
		fallback: cfg.GoogleOAuthRefreshToken,
		now:      time.Now,
	}
}

func (c *DriveCredentials) setting(ctx context.Context, key string) (string, error) {
	s, err := c.settings.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	if s == nil {
		return "", nil
	}
	return s.Value, nil
}

// RefreshToken prefers the token saved by the connect flow and falls back to
// the one in the environment.
func (c *DriveCredentials) RefreshToken(ctx context.Context) (string, error) {
	stored, err := c.setting(ctx, model.SettingDriveRefreshToken)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return c.fallback, nil
	}
	token, err := util.OpenString(c.key, stored)
	if err != nil {
		return "", fmt.Errorf("open drive refresh token: %w", err)
	}
	return token, nil
}

func (c *DriveCredentials) Save(ctx context.Context, conn storage.DriveConnection) error {
	sealed, err := util.SealString(c.key, conn.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal drive refresh token: %w", err)
	}
	if err := c.settings.Upsert(ctx, model.SettingDriveRefreshToken, sealed); err != nil {
		return err
	}
	if err := c.settings.Upsert(ctx, model.SettingDriveConnectedAt, c.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if email := util.NormalizeEmail(conn.Email); email != "" {
		if err := c.settings.Upsert(ctx, model.SettingDriveConnectedEmail, email); err != nil {
			return err
		}
	}
	return nil
}

type DriveStatus struct {
	HasStoredRefreshToken bool    `json:"hasStoredRefreshToken"`
	HasEnvRefreshToken    bool    `json:"hasEnvRefreshToken"`
	ConnectedEmail        *string `json:"connectedEmail"`
	ConnectedAt           *string `json:"connectedAt"`
}

type StorageStatus struct {
	Success          bool                  `json:"success"`
	Backend          config.StorageBackend `json:"backend"`
	ConnectSupported bool                  `json:"connectSupported"`
	Drive            *DriveStatus          `json:"drive,omitempty"`
}

// ConnectFailure is a connect callback outcome reported back to the admin
// page as a reason code.
type ConnectFailure struct {
	Reason string
}

func (e *ConnectFailure) Error() string { return "storage connect failed: " + e.Reason }

type StorageService struct {
	backend     config.StorageBackend
	provider    storage.Provider
	connector   *storage.DriveConnector
	credentials *DriveCredentials
}

// NewStorageService wires the admin storage operations. connector and
// credentials are nil for backends without an interactive connect flow.
func NewStorageService(
	backend config.StorageBackend,
	provider storage.Provider,
	connector *storage.DriveConnector,
	credentials *DriveCredentials,
) *StorageService {
	return &StorageService{
		backend:     backend,
		provider:    provider,
		connector:   connector,
		credentials: credentials,
	}
}

func (s *StorageService) Status(ctx context.Context) (*StorageStatus, error) {
	status := &StorageStatus{
		Success:          true,
		Backend:          s.backend,
		ConnectSupported: s.connector != nil && s.connector.Configured(),
	}
	if s.credentials == nil {
		return status, nil
	}

	stored, err := s.credentials.setting(ctx, model.SettingDriveRefreshToken)
	if err != nil {
		return nil, err
	}
	email, err := s.credentials.setting(ctx, model.SettingDriveConnectedEmail)
	if err != nil {
		return nil, err
	}
	at, err := s.credentials.setting(ctx, model.SettingDriveConnectedAt)
	if err != nil {
		return nil, err
	}

	status.Drive = &DriveStatus{
		HasStoredRefreshToken: stored != "",
		HasEnvRefreshToken:    s.credentials.fallback != "",
		ConnectedEmail:        optional(email),
		ConnectedAt:           optional(at),
	}
	return status, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s *StorageService) ConnectURL(state string) (string, error) {
	if s.connector == nil {
		return "", apperrors.PreconditionFailed("Storage backend has no connect flow")
	}
	u, err := s.connector.AuthCodeURL(state)
	if errors.Is(err, storage.ErrNotConnected) {
		return "", apperrors.PreconditionFailed("Google OAuth client credentials are not configured")
	}
	return u, err
}

// CompleteConnect exchanges the consent code and stores the resulting
// refresh token.
func (s *StorageService) CompleteConnect(ctx context.Context, code string) error {
	if s.connector == nil || s.credentials == nil {
		return &ConnectFailure{Reason: "not_supported"}
	}

	conn, err := s.connector.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("drive token exchange failed")
		return &ConnectFailure{Reason: "token_exchange_failed"}
	}
	if conn.RefreshToken == "" {
		return &ConnectFailure{Reason: "no_refresh_token"}
	}

	if err := s.credentials.Save(ctx, *conn); err != nil {
		return fmt.Errorf("save drive connection: %w", err)
	}

	log.Info().Bool("hasEmail", conn.Email != "").Msg("drive connected")
	return nil
}

func (s *StorageService) ListFiles(ctx context.Context, opts storage.ListOptions) (*storage.FileList, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = config.DriveListDefaultSize
	}
	if opts.PageSize > config.DriveListMaxSize {
		opts.PageSize = config.DriveListMaxSize
	}

	ctx, cancel := context.WithTimeout(ctx, config.StorageMetadataTimeout)
	defer cancel()

	list, err := s.provider.List(ctx, opts)
	if err != nil {
		return nil, storageError(err)
	}
	return list, nil
}

// FileInfo looks up one file by id, object key or Drive link.
func (s *StorageService) FileInfo(ctx context.Context, input string) (*storage.FileInfo, error) {
	fileID, ok := storage.ExtractDriveFileID(input)
	if !ok && s.backend == config.StorageBackendS3 && storage.IsPlainObjectKey(input) {
		fileID, ok = storage.ResolveFileID(input), true
	}
	if !ok {
		return nil, apperrors.InvalidInput("input", "Provide a valid storage file ID or Google Drive link")
	}

	ctx, cancel := context.WithTimeout(ctx, config.StorageMetadataTimeout)
	defer cancel()

	info, err := s.provider.Stat(ctx, fileID)
	if err != nil {
		return nil, storageError(err)
	}
	return info, nil
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrNotConnected) {
		return apperrors.PreconditionFailed("Storage is not connected")
	}
	var upstream *storage.UpstreamError
	if errors.As(err, &upstream) && upstream.Status == 404 {
		return apperrors.NotFound("File")
	}
	return apperrors.External("storage", err)
}
