package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type StorageBackend string

const (
	StorageBackendDrive StorageBackend = "drive"
	StorageBackendS3    StorageBackend = "s3"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
	StaticDir   string `env:"STATIC_DIR"`

	SessionSecret          string `env:"SESSION_SECRET,required,notEmpty"`
	SessionCookieName      string `env:"SESSION_COOKIE_NAME" envDefault:"rv_session"`
	AdminSessionCookieName string `env:"ADMIN_SESSION_COOKIE_NAME" envDefault:"rv_admin_session"`
	SessionTTLDays         int    `env:"SESSION_TTL_DAYS" envDefault:"30"`
	AdminSessionTTLHours   int    `env:"ADMIN_SESSION_TTL_HOURS" envDefault:"12"`
	LoginCodeTTLMinutes    int    `env:"LOGIN_CODE_TTL_MINUTES" envDefault:"10"`
	StreamTokenTTLSeconds  int    `env:"STREAM_TOKEN_TTL_SECONDS" envDefault:"3600"`
	EncryptionKey          string `env:"ENCRYPTION_KEY"`

	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	WebhookSecret                    string `env:"WEBHOOK_SECRET,required,notEmpty"`
	WebhookTimestampToleranceSeconds int    `env:"WEBHOOK_TIMESTAMP_TOLERANCE_SECONDS" envDefault:"300"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	StorageBackend StorageBackend `env:"STORAGE_BACKEND" envDefault:"drive"`

	GoogleOAuthClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleOAuthClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	GoogleOAuthRefreshToken string   `env:"GOOGLE_OAUTH_REFRESH_TOKEN"`
	GoogleDriveRedirectURI  string   `env:"GOOGLE_DRIVE_CONNECT_REDIRECT_URI"`
	GoogleDriveScopes       []string `env:"GOOGLE_DRIVE_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/drive.readonly"`

	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func (c *Config) AdminSessionTTL() time.Duration {
	return time.Duration(c.AdminSessionTTLHours) * time.Hour
}

func (c *Config) LoginCodeTTL() time.Duration {
	return time.Duration(c.LoginCodeTTLMinutes) * time.Minute
}

func (c *Config) StreamTokenTTL() time.Duration {
	return time.Duration(c.StreamTokenTTLSeconds) * time.Second
}

func (c *Config) WebhookTolerance() time.Duration {
	return time.Duration(c.WebhookTimestampToleranceSeconds) * time.Second
}

// DriveRedirectURI falls back to the callback route on APP_URL.
func (c *Config) DriveRedirectURI() string {
	if c.GoogleDriveRedirectURI != "" {
		return c.GoogleDriveRedirectURI
	}
	return strings.TrimRight(c.AppURL, "/") + "/api/admin/storage/connect/callback"
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != "" && c.SMTPFrom != ""
}

func (c *Config) Validate() error {
	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if err := validateSecret("SESSION_SECRET", c.SessionSecret); err != nil {
		return err
	}
	if len(c.WebhookSecret) < 16 {
		return fmt.Errorf("WEBHOOK_SECRET must be at least 16 characters")
	}
	if c.WebhookTimestampToleranceSeconds < 30 || c.WebhookTimestampToleranceSeconds > 900 {
		return fmt.Errorf("WEBHOOK_TIMESTAMP_TOLERANCE_SECONDS must be between 30 and 900")
	}
	if c.LoginCodeTTLMinutes < 3 || c.LoginCodeTTLMinutes > 30 {
		return fmt.Errorf("LOGIN_CODE_TTL_MINUTES must be between 3 and 30")
	}
	if c.AdminSessionTTLHours < 1 || c.AdminSessionTTLHours > 48 {
		return fmt.Errorf("ADMIN_SESSION_TTL_HOURS must be between 1 and 48")
	}
	if c.SessionTTLDays < 1 || c.SessionTTLDays > 90 {
		return fmt.Errorf("SESSION_TTL_DAYS must be between 1 and 90")
	}

	if c.EncryptionKey != "" {
		if key, err := hex.DecodeString(c.EncryptionKey); err != nil || len(key) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
		}
	}

	switch c.StorageBackend {
	case StorageBackendDrive:
	case StorageBackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: drive, s3")
	}

	if c.IsProduction() {
		if c.AdminEmail == "" || c.AdminPasswordHash == "" {
			log.Warn().Msg("ADMIN_EMAIL or ADMIN_PASSWORD_HASH is empty in production: admin login disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if !c.SMTPConfigured() {
			log.Warn().Msg("SMTP is not configured in production: login codes cannot be delivered")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: storage refresh tokens will be stored in plaintext")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret", name)
		}
	}
	return nil
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
