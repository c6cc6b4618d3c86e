package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	return &Config{
		Port:                             8080,
		AppURL:                           "http://localhost:8080",
		SessionSecret:                    testSecret,
		WebhookSecret:                    "webhook-secret-1234",
		WebhookTimestampToleranceSeconds: 300,
		LoginCodeTTLMinutes:              10,
		AdminSessionTTLHours:             12,
		SessionTTLDays:                   30,
		StorageBackend:                   StorageBackendDrive,
	}
}

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("durations convert from units", func(t *testing.T) {
		cfg := &Config{
			SessionTTLDays:                   2,
			AdminSessionTTLHours:             12,
			LoginCodeTTLMinutes:              10,
			StreamTokenTTLSeconds:            3600,
			WebhookTimestampToleranceSeconds: 300,
		}
		assert.Equal(t, 48*time.Hour, cfg.SessionTTL())
		assert.Equal(t, 12*time.Hour, cfg.AdminSessionTTL())
		assert.Equal(t, 10*time.Minute, cfg.LoginCodeTTL())
		assert.Equal(t, time.Hour, cfg.StreamTokenTTL())
		assert.Equal(t, 5*time.Minute, cfg.WebhookTolerance())
	})

	t.Run("DriveRedirectURI defaults to callback on app url", func(t *testing.T) {
		cfg := &Config{AppURL: "https://vault.example.com/"}
		assert.Equal(t, "https://vault.example.com/api/admin/storage/connect/callback", cfg.DriveRedirectURI())

		cfg.GoogleDriveRedirectURI = "https://other.example.com/cb"
		assert.Equal(t, "https://other.example.com/cb", cfg.DriveRedirectURI())
	})

	t.Run("IsProduction", func(t *testing.T) {
		assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
		assert.False(t, (&Config{AppEnv: "development"}).IsProduction())
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads config with defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("SESSION_SECRET", testSecret)
		t.Setenv("WEBHOOK_SECRET", "webhook-secret-1234")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "rv_session", cfg.SessionCookieName)
		assert.Equal(t, "rv_admin_session", cfg.AdminSessionCookieName)
		assert.Equal(t, 300, cfg.WebhookTimestampToleranceSeconds)
		assert.Equal(t, 3600, cfg.StreamTokenTTLSeconds)
		assert.Equal(t, StorageBackendDrive, cfg.StorageBackend)
		assert.Equal(t, []string{"https://www.googleapis.com/auth/drive.readonly"}, cfg.GoogleDriveScopes)
		assert.Empty(t, cfg.RedisURL)
	})

	t.Run("fails without required secrets", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("WEBHOOK_SECRET", "")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts a valid config", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("rejects short session secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.SessionSecret = "short"
		assert.ErrorContains(t, cfg.Validate(), "SESSION_SECRET")
	})

	t.Run("rejects plaintext admin password", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdminPasswordHash = "hunter2"
		assert.ErrorContains(t, cfg.Validate(), "bcrypt")
	})

	t.Run("accepts bcrypt admin password", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdminPasswordHash = "$2a$12$abcdefghijklmnopqrstuv"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects out of range tolerance", func(t *testing.T) {
		cfg := validConfig()
		cfg.WebhookTimestampToleranceSeconds = 5
		assert.ErrorContains(t, cfg.Validate(), "TOLERANCE")
	})

	t.Run("s3 backend requires bucket", func(t *testing.T) {
		cfg := validConfig()
		cfg.StorageBackend = StorageBackendS3
		assert.ErrorContains(t, cfg.Validate(), "S3_BUCKET")

		cfg.S3Bucket = "recordings"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.StorageBackend = "ftp"
		assert.Error(t, cfg.Validate())
	})

	t.Run("encryption key must be 32 hex bytes", func(t *testing.T) {
		cfg := validConfig()
		cfg.EncryptionKey = "not-hex"
		assert.ErrorContains(t, cfg.Validate(), "ENCRYPTION_KEY")

		cfg.EncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
		assert.NoError(t, cfg.Validate())
	})
}
