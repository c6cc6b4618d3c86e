package handler

import (
	"context"

	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/service"
	"github.com/recvault/vault-server-go/internal/storage"
)

// The interfaces below are the slices of the service layer each handler
// depends on.

type LoginService interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*service.IssuedSession, error)
	Logout(ctx context.Context, token string) error
}

type VaultReader interface {
	GetVault(ctx context.Context, userID string) (*model.VaultView, error)
}

type MediaService interface {
	IssueStreamTicket(ctx context.Context, userID, assetID string, client service.ClientFingerprint) (*service.StreamTicket, error)
	OpenStream(ctx context.Context, userID, assetID, token string, client service.ClientFingerprint, rangeHeader string) (*service.MediaStream, error)
	OpenMaterial(ctx context.Context, userID, assetID string) (*service.MediaStream, error)
}

type Provisioner interface {
	Provision(ctx context.Context, body []byte) (*service.ProvisionResult, error)
}

type AdminAuth interface {
	Configured() bool
	Login(ctx context.Context, email, password string) (*service.IssuedSession, error)
	ValidateSession(ctx context.Context, token string) (*model.AdminSession, error)
	Logout(ctx context.Context, token string) error
}

type Registrar interface {
	UpsertUserAndVault(ctx context.Context, email string) (*model.VaultOwner, bool, error)
}

type RegistrantImporter interface {
	Import(ctx context.Context, source string) (*service.ImportReport, error)
}

type CatalogEditor interface {
	List(ctx context.Context, limit int) ([]model.CatalogEntry, error)
	UpsertEntry(ctx context.Context, params model.UpsertCatalogEntryParams) (*model.CatalogEntry, *service.SyncResult, error)
}

type PayloadValidator interface {
	Struct(s any) []service.FieldError
}

type StorageAdmin interface {
	Status(ctx context.Context) (*service.StorageStatus, error)
	ListFiles(ctx context.Context, opts storage.ListOptions) (*storage.FileList, error)
	FileInfo(ctx context.Context, input string) (*storage.FileInfo, error)
	ConnectURL(state string) (string, error)
	CompleteConnect(ctx context.Context, code string) error
}
