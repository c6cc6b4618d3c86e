package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/service"
	"github.com/recvault/vault-server-go/internal/storage"
)

type mockLoginService struct {
	mock.Mock
}

func (m *mockLoginService) RequestCode(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockLoginService) VerifyCode(ctx context.Context, email, code string) (*service.IssuedSession, error) {
	args := m.Called(ctx, email, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssuedSession), args.Error(1)
}

func (m *mockLoginService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type mockMediaService struct {
	mock.Mock
}

func (m *mockMediaService) IssueStreamTicket(ctx context.Context, userID, assetID string, client service.ClientFingerprint) (*service.StreamTicket, error) {
	args := m.Called(ctx, userID, assetID, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StreamTicket), args.Error(1)
}

func (m *mockMediaService) OpenStream(ctx context.Context, userID, assetID, token string, client service.ClientFingerprint, rangeHeader string) (*service.MediaStream, error) {
	args := m.Called(ctx, userID, assetID, token, client, rangeHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MediaStream), args.Error(1)
}

func (m *mockMediaService) OpenMaterial(ctx context.Context, userID, assetID string) (*service.MediaStream, error) {
	args := m.Called(ctx, userID, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MediaStream), args.Error(1)
}

type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) Provision(ctx context.Context, body []byte) (*service.ProvisionResult, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProvisionResult), args.Error(1)
}

type mockAdminAuth struct {
	mock.Mock
}

func (m *mockAdminAuth) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockAdminAuth) Login(ctx context.Context, email, password string) (*service.IssuedSession, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssuedSession), args.Error(1)
}

func (m *mockAdminAuth) ValidateSession(ctx context.Context, token string) (*model.AdminSession, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminSession), args.Error(1)
}

func (m *mockAdminAuth) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) UpsertUserAndVault(ctx context.Context, email string) (*model.VaultOwner, bool, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.VaultOwner), args.Bool(1), args.Error(2)
}

type mockImporter struct {
	mock.Mock
}

func (m *mockImporter) Import(ctx context.Context, source string) (*service.ImportReport, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportReport), args.Error(1)
}

type mockCatalogEditor struct {
	mock.Mock
}

func (m *mockCatalogEditor) List(ctx context.Context, limit int) ([]model.CatalogEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.CatalogEntry), args.Error(1)
}

func (m *mockCatalogEditor) UpsertEntry(ctx context.Context, params model.UpsertCatalogEntryParams) (*model.CatalogEntry, *service.SyncResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.CatalogEntry), args.Get(1).(*service.SyncResult), args.Error(2)
}

type mockStorageAdmin struct {
	mock.Mock
}

func (m *mockStorageAdmin) Status(ctx context.Context) (*service.StorageStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StorageStatus), args.Error(1)
}

func (m *mockStorageAdmin) ListFiles(ctx context.Context, opts storage.ListOptions) (*storage.FileList, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.FileList), args.Error(1)
}

func (m *mockStorageAdmin) FileInfo(ctx context.Context, input string) (*storage.FileInfo, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.FileInfo), args.Error(1)
}

func (m *mockStorageAdmin) ConnectURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *mockStorageAdmin) CompleteConnect(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}
