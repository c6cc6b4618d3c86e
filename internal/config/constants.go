package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Migration timeout at startup
const MigrationTimeout = 60 * time.Second

// Rate limits (requests per window)
const (
	WebhookRateLimit        = 120
	WebhookRateWindow       = time.Minute
	LoginRequestRateLimit   = 5
	LoginVerifyRateLimit    = 10
	AdminLoginRateLimit     = 10
	AdminRegisterIPLimit    = 30
	AdminRegisterEmailLimit = 5
	AuthRateWindow          = 15 * time.Minute
)

// Login codes
const LoginCodeDigits = 6

// Catalog and import limits
const (
	CatalogListLimit      = 100
	ImportErrorReportSize = 20
	DriveListDefaultSize  = 20
	DriveListMaxSize      = 100
)

// Storage connect state cookie lifetime
const StorageConnectStateTTL = 10 * time.Minute

// Upstream storage request timeout for metadata calls (not media streams)
const StorageMetadataTimeout = 15 * time.Second

// Request body limits
const (
	MaxJSONBodySize   = 1 << 20
	MaxImportBodySize = 10 << 20
)
