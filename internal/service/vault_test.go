package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/recvault/vault-server-go/internal/errors"
	"github.com/recvault/vault-server-go/internal/model"
)

func TestUpsertUserAndVault(t *testing.T) {
	ctx := context.Background()

	t.Run("creates once and normalizes email", func(t *testing.T) {
		svc := newTestServices()

		first, created, err := svc.vaults.UpsertUserAndVault(ctx, "  Alice@Example.COM ")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "alice@example.com", first.Email)
		assert.Len(t, first.Slug, 24)

		second, created, err := svc.vaults.UpsertUserAndVault(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.VaultID, second.VaultID)
		assert.Equal(t, first.Slug, second.Slug)
	})

	t.Run("rejects blank email", func(t *testing.T) {
		svc := newTestServices()
		_, _, err := svc.vaults.UpsertUserAndVault(ctx, "   ")
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})
}

func directPayload(requestID *string) IngestPayload {
	return IngestPayload{
		Email:        "a@x.com",
		RequestID:    requestID,
		PackageTitle: "Spring Workshop",
		Assets: []model.AssetInput{
			{ExternalAssetID: strPtr("rec-1"), Title: "Day 1", Kind: model.AssetKindVideo, StorageFileID: "1AbCdEfGhIjK"},
			{Title: "Slides", Kind: model.AssetKindPDF, StorageFileID: "1ZyXwVuTsRqP"},
		},
	}
}

func TestIngestPackage(t *testing.T) {
	ctx := context.Background()

	t.Run("identical calls with a request id are idempotent", func(t *testing.T) {
		svc := newTestServices()

		first, err := svc.vaults.IngestPackage(ctx, directPayload(strPtr("req-1")))
		require.NoError(t, err)
		second, err := svc.vaults.IngestPackage(ctx, directPayload(strPtr("req-1")))
		require.NoError(t, err)

		assert.Equal(t, first.PackageID, second.PackageID)
		assert.Equal(t, 1, svc.store.packageCount())
		assert.Equal(t, 2, svc.store.assetCount())
		assert.Equal(t, 2, second.TotalAssets)
	})

	t.Run("without a request id every call creates a package", func(t *testing.T) {
		svc := newTestServices()

		_, err := svc.vaults.IngestPackage(ctx, directPayload(nil))
		require.NoError(t, err)
		_, err = svc.vaults.IngestPackage(ctx, directPayload(nil))
		require.NoError(t, err)

		assert.Equal(t, 2, svc.store.packageCount())
	})

	t.Run("updates an asset matched by external id", func(t *testing.T) {
		svc := newTestServices()

		_, err := svc.vaults.IngestPackage(ctx, directPayload(strPtr("req-1")))
		require.NoError(t, err)

		payload := directPayload(strPtr("req-1"))
		payload.Assets[0].Title = "Day 1 (re-edit)"
		payload.Assets[0].StorageFileID = "1NewFileIdXYZ"
		_, err = svc.vaults.IngestPackage(ctx, payload)
		require.NoError(t, err)

		assert.Equal(t, 2, svc.store.assetCount())
		found := false
		for _, a := range svc.store.assets {
			if a.Title == "Day 1 (re-edit)" {
				found = true
				assert.Equal(t, "1AbCdEfGhIjK", a.StorageFileID)
			}
		}
		assert.True(t, found)
	})

	t.Run("request id owned by another vault conflicts", func(t *testing.T) {
		svc := newTestServices()

		_, err := svc.vaults.IngestPackage(ctx, directPayload(strPtr("req-1")))
		require.NoError(t, err)

		other := directPayload(strPtr("req-1"))
		other.Email = "b@x.com"
		_, err = svc.vaults.IngestPackage(ctx, other)
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
		assert.Equal(t, 1, svc.store.packageCount())
	})

	t.Run("lost insert race falls back to update", func(t *testing.T) {
		svc := newTestServices()

		_, err := svc.vaults.IngestPackage(ctx, directPayload(strPtr("req-1")))
		require.NoError(t, err)

		*svc.assets.missNextFinds = 1
		payload := directPayload(strPtr("req-1"))
		payload.Assets = payload.Assets[:1]
		payload.Assets[0].Title = "Day 1 retitled"
		_, err = svc.vaults.IngestPackage(ctx, payload)
		require.NoError(t, err)

		assert.Equal(t, 2, svc.store.assetCount())
		titles := []string{}
		for _, a := range svc.store.assets {
			titles = append(titles, a.Title)
		}
		assert.Contains(t, titles, "Day 1 retitled")
	})
}

func TestGetVault(t *testing.T) {
	ctx := context.Background()
	svc := newTestServices()

	first, err := svc.vaults.IngestPackage(ctx, directPayload(strPtr("req-1")))
	require.NoError(t, err)
	second, err := svc.vaults.IngestPackage(ctx, directPayload(strPtr("req-2")))
	require.NoError(t, err)

	view, err := svc.vaults.GetVault(ctx, first.Owner.UserID)
	require.NoError(t, err)
	require.Len(t, view.Packages, 2)

	assert.Equal(t, second.PackageID, view.Packages[0].ID)
	assert.Equal(t, first.PackageID, view.Packages[1].ID)
	assert.Len(t, view.Packages[0].Assets, 2)

	missing, err := svc.vaults.GetVault(ctx, "no-such-user")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
