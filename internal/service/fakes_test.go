package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recvault/vault-server-go/internal/model"
	"github.com/recvault/vault-server-go/internal/repository"
)

// memStore is an in-memory stand-in for the database that enforces the same
// uniqueness rules as the schema.
type memStore struct {
	mu sync.Mutex

	users    []model.User
	vaults   []model.Vault
	packages []*model.Package
	assets   []*model.Asset
	catalog  map[string]*model.CatalogEntry

	sessions      []*model.Session
	adminSessions []*model.AdminSession
	loginCodes    []*model.LoginCode
	settings      map[string]string

	writes int
	seq    int
}

func newMemStore() *memStore {
	return &memStore{
		catalog:  make(map[string]*model.CatalogEntry),
		settings: make(map[string]string),
	}
}

// tick returns strictly increasing timestamps so created_at ordering is
// deterministic.
func (s *memStore) tick() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

func (s *memStore) packageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packages)
}

func (s *memStore) assetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assets)
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type fakeUserRepo struct{ s *memStore }

func (r fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r fakeUserRepo) owner(match func(model.User) bool) *model.VaultOwner {
	for _, u := range r.s.users {
		if !match(u) {
			continue
		}
		for _, v := range r.s.vaults {
			if v.UserID == u.ID {
				return &model.VaultOwner{UserID: u.ID, Email: u.Email, VaultID: v.ID, Slug: v.Slug}
			}
		}
	}
	return nil
}

func (r fakeUserRepo) FindOwnerByEmail(ctx context.Context, email string) (*model.VaultOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.owner(func(u model.User) bool { return u.Email == email }), nil
}

func (r fakeUserRepo) FindOwnerByUserID(ctx context.Context, userID string) (*model.VaultOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.owner(func(u model.User) bool { return u.ID == userID }), nil
}

func (r fakeUserRepo) CreateWithVault(ctx context.Context, params model.CreateUserWithVaultParams) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == params.Email {
			return false, nil
		}
	}
	now := r.s.tick()
	user := model.User{ID: uuid.NewString(), Email: params.Email, CreatedAt: now, UpdatedAt: now}
	r.s.users = append(r.s.users, user)
	r.s.vaults = append(r.s.vaults, model.Vault{ID: uuid.NewString(), UserID: user.ID, Slug: params.Slug, CreatedAt: now, UpdatedAt: now})
	r.s.writes++
	return true, nil
}

type fakePackageRepo struct{ s *memStore }

func (r fakePackageRepo) insert(vaultID string, requestID *string, d model.PackageDetails) *model.Package {
	now := r.s.tick()
	pkg := &model.Package{
		ID:                uuid.NewString(),
		VaultID:           vaultID,
		ExternalRequestID: requestID,
		Title:             d.Title,
		ClassCode:         d.ClassCode,
		ClassDate:         d.ClassDate,
		ClassPrice:        d.ClassPrice,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.s.packages = append(r.s.packages, pkg)
	r.s.writes++
	return pkg
}

func applyDetails(pkg *model.Package, d model.PackageDetails, now time.Time) {
	pkg.Title = d.Title
	pkg.ClassCode = d.ClassCode
	pkg.ClassDate = d.ClassDate
	pkg.ClassPrice = d.ClassPrice
	pkg.UpdatedAt = now
}

func (r fakePackageRepo) UpsertByExternalRequestID(ctx context.Context, params model.UpsertPackageParams) (*model.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.packages {
		if p.ExternalRequestID != nil && *p.ExternalRequestID == params.ExternalRequestID {
			if p.VaultID != params.VaultID {
				return nil, repository.ErrRequestIDConflict
			}
			applyDetails(p, params.PackageDetails, r.s.tick())
			r.s.writes++
			cp := *p
			return &cp, nil
		}
	}
	rid := params.ExternalRequestID
	cp := *r.insert(params.VaultID, &rid, params.PackageDetails)
	return &cp, nil
}

func (r fakePackageRepo) Create(ctx context.Context, params model.CreatePackageParams) (*model.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *r.insert(params.VaultID, nil, params.PackageDetails)
	return &cp, nil
}

func (r fakePackageRepo) UpdateDetails(ctx context.Context, id string, details model.PackageDetails) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.packages {
		if p.ID == id {
			applyDetails(p, details, r.s.tick())
			r.s.writes++
		}
	}
	return nil
}

func (r fakePackageRepo) ListByVaultID(ctx context.Context, vaultID string) ([]model.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Package
	for i := len(r.s.packages) - 1; i >= 0; i-- {
		if r.s.packages[i].VaultID == vaultID {
			out = append(out, *r.s.packages[i])
		}
	}
	return out, nil
}

func (r fakePackageRepo) ListByRequestIDSuffix(ctx context.Context, suffix string) ([]model.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Package
	for _, p := range r.s.packages {
		if p.ExternalRequestID != nil && strings.HasSuffix(*p.ExternalRequestID, ":"+suffix) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeAssetRepo struct {
	s *memStore
	// missNextFinds makes the next n dedup lookups report nothing, which
	// reproduces losing an insert race to a concurrent writer.
	missNextFinds *int
}

func (r fakeAssetRepo) FindByDedupKey(ctx context.Context, packageID, storageFileID string, externalAssetID *string) (*model.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.missNextFinds != nil && *r.missNextFinds > 0 {
		*r.missNextFinds--
		return nil, nil
	}
	for _, a := range r.s.assets {
		if a.PackageID != packageID {
			continue
		}
		if a.StorageFileID == storageFileID ||
			(externalAssetID != nil && a.ExternalAssetID != nil && *a.ExternalAssetID == *externalAssetID) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r fakeAssetRepo) Create(ctx context.Context, packageID string, input model.AssetInput) (*model.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.PackageID != packageID {
			continue
		}
		if a.StorageFileID == input.StorageFileID ||
			(input.ExternalAssetID != nil && a.ExternalAssetID != nil && *a.ExternalAssetID == *input.ExternalAssetID) {
			return nil, repository.ErrAssetExists
		}
	}
	now := r.s.tick()
	asset := &model.Asset{
		ID:              uuid.NewString(),
		PackageID:       packageID,
		ExternalAssetID: input.ExternalAssetID,
		Title:           input.Title,
		Kind:            input.Kind,
		StorageFileID:   input.StorageFileID,
		MimeType:        input.MimeType,
		SizeBytes:       input.SizeBytes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.s.assets = append(r.s.assets, asset)
	r.s.writes++
	cp := *asset
	return &cp, nil
}

func (r fakeAssetRepo) Update(ctx context.Context, id string, input model.AssetInput) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.ID == id {
			a.Title = input.Title
			a.Kind = input.Kind
			a.MimeType = input.MimeType
			a.SizeBytes = input.SizeBytes
			a.ExternalAssetID = input.ExternalAssetID
			a.UpdatedAt = r.s.tick()
			r.s.writes++
		}
	}
	return nil
}

func (r fakeAssetRepo) ListByPackageIDs(ctx context.Context, packageIDs []string) ([]model.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(packageIDs))
	for _, id := range packageIDs {
		want[id] = true
	}
	var out []model.Asset
	for i := len(r.s.assets) - 1; i >= 0; i-- {
		if want[r.s.assets[i].PackageID] {
			out = append(out, *r.s.assets[i])
		}
	}
	return out, nil
}

func (r fakeAssetRepo) FindForUser(ctx context.Context, userID, assetID string) (*model.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.ID != assetID {
			continue
		}
		for _, p := range r.s.packages {
			if p.ID != a.PackageID {
				continue
			}
			for _, v := range r.s.vaults {
				if v.ID == p.VaultID && v.UserID == userID {
					cp := *a
					return &cp, nil
				}
			}
		}
	}
	return nil, nil
}

type fakeCatalogRepo struct{ s *memStore }

func (r fakeCatalogRepo) Upsert(ctx context.Context, params model.UpsertCatalogEntryParams) (*model.CatalogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.tick()
	entry, ok := r.s.catalog[params.VideoID]
	if !ok {
		entry = &model.CatalogEntry{ID: uuid.NewString(), VideoID: params.VideoID, CreatedAt: now}
		r.s.catalog[params.VideoID] = entry
	}
	entry.ClassCode = params.ClassCode
	entry.ClassTitle = params.ClassTitle
	entry.ClassDate = params.ClassDate
	entry.ClassPrice = params.ClassPrice
	entry.StorageFileID = params.StorageFileID
	entry.MimeType = params.MimeType
	entry.UpdatedAt = now
	entry.Materials = make([]model.CatalogMaterial, len(params.Materials))
	for i, m := range params.Materials {
		m.EntryID = entry.ID
		entry.Materials[i] = m
	}
	r.s.writes++
	cp := *entry
	return &cp, nil
}

func (r fakeCatalogRepo) FindByVideoIDs(ctx context.Context, videoIDs []string) ([]model.CatalogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.CatalogEntry
	for _, id := range videoIDs {
		if e, ok := r.s.catalog[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r fakeCatalogRepo) List(ctx context.Context, limit int) ([]model.CatalogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.CatalogEntry, 0, len(r.s.catalog))
	for _, e := range r.s.catalog {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSessionRepo struct {
	s          *memStore
	touchCalls int
}

func (r *fakeSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess := &model.Session{ID: uuid.NewString(), UserID: params.UserID, TokenHash: params.TokenHash, ExpiresAt: params.ExpiresAt}
	r.s.sessions = append(r.s.sessions, sess)
	return sess, nil
}

func (r *fakeSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash && sess.ExpiresAt.After(time.Now()) {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) Touch(ctx context.Context, id string) error {
	r.touchCalls++
	return nil
}

func (r *fakeSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.sessions[:0]
	for _, sess := range r.s.sessions {
		if sess.TokenHash != tokenHash {
			kept = append(kept, sess)
		}
	}
	r.s.sessions = kept
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeAdminSessionRepo struct{ s *memStore }

func (r fakeAdminSessionRepo) Create(ctx context.Context, params model.CreateAdminSessionParams) (*model.AdminSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess := &model.AdminSession{ID: uuid.NewString(), AdminEmail: params.AdminEmail, TokenHash: params.TokenHash, ExpiresAt: params.ExpiresAt}
	r.s.adminSessions = append(r.s.adminSessions, sess)
	return sess, nil
}

func (r fakeAdminSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.adminSessions {
		if sess.TokenHash == tokenHash && sess.ExpiresAt.After(time.Now()) {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (r fakeAdminSessionRepo) Touch(ctx context.Context, id string) error { return nil }

func (r fakeAdminSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.adminSessions[:0]
	for _, sess := range r.s.adminSessions {
		if sess.TokenHash != tokenHash {
			kept = append(kept, sess)
		}
	}
	r.s.adminSessions = kept
	return nil
}

func (r fakeAdminSessionRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type fakeLoginCodeRepo struct{ s *memStore }

func (r fakeLoginCodeRepo) Create(ctx context.Context, params model.CreateLoginCodeParams) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.loginCodes = append(r.s.loginCodes, &model.LoginCode{
		ID: uuid.NewString(), UserID: params.UserID, CodeHash: params.CodeHash, ExpiresAt: params.ExpiresAt,
	})
	return nil
}

func (r fakeLoginCodeRepo) Consume(ctx context.Context, userID, codeHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.loginCodes) - 1; i >= 0; i-- {
		c := r.s.loginCodes[i]
		if c.UserID == userID && c.CodeHash == codeHash && c.ConsumedAt == nil && c.ExpiresAt.After(time.Now()) {
			now := time.Now()
			c.ConsumedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r fakeLoginCodeRepo) DeleteExpiredOrConsumed(ctx context.Context) (int64, error) { return 0, nil }

type fakeSettingRepo struct{ s *memStore }

func (r fakeSettingRepo) Get(ctx context.Context, key string) (*model.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.settings[key]
	if !ok {
		return nil, nil
	}
	return &model.Setting{Key: key, Value: v}, nil
}

func (r fakeSettingRepo) Upsert(ctx context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}

// testServices wires the ingestion services over one memStore.
type testServices struct {
	store   *memStore
	vaults  *VaultService
	catalog *CatalogService
	assets  fakeAssetRepo
}

func newTestServices() *testServices {
	store := newMemStore()
	miss := 0
	assets := fakeAssetRepo{s: store, missNextFinds: &miss}
	vaults := NewVaultService(fakeUserRepo{s: store}, fakePackageRepo{s: store}, assets)
	catalog := NewCatalogService(fakeCatalogRepo{s: store}, fakePackageRepo{s: store}, vaults)
	return &testServices{store: store, vaults: vaults, catalog: catalog, assets: assets}
}

func strPtr(s string) *string { return &s }
