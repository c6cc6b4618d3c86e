package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/recvault/vault-server-go/internal/config"
	"github.com/recvault/vault-server-go/internal/database"
	"github.com/recvault/vault-server-go/internal/handler"
	"github.com/recvault/vault-server-go/internal/jobs"
	"github.com/recvault/vault-server-go/internal/mailer"
	"github.com/recvault/vault-server-go/internal/middleware"
	"github.com/recvault/vault-server-go/internal/ratelimit"
	"github.com/recvault/vault-server-go/internal/redis"
	"github.com/recvault/vault-server-go/internal/repository"
	"github.com/recvault/vault-server-go/internal/service"
	"github.com/recvault/vault-server-go/internal/signing"
	"github.com/recvault/vault-server-go/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setupLogger(cfg)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), config.MigrationTimeout)
	if err := db.Migrate(migrateCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	migrateCancel()

	var limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		limiterStore = ratelimit.NewRedisStore(redisClient)
		log.Info().Msg("redis connected: rate limits are shared")
	} else {
		log.Warn().Msg("REDIS_URL is empty: rate limits are per process")
	}
	limiter := ratelimit.NewLimiter(limiterStore)

	userRepo := repository.NewUserRepository(db.DB)
	packageRepo := repository.NewPackageRepository(db.DB)
	assetRepo := repository.NewAssetRepository(db.DB)
	catalogRepo := repository.NewCatalogRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	adminSessionRepo := repository.NewAdminSessionRepository(db.DB)
	loginCodeRepo := repository.NewLoginCodeRepository(db.DB)
	settingRepo := repository.NewSettingRepository(db.DB)

	pruner := jobs.NewAuthPruner(sessionRepo, adminSessionRepo, loginCodeRepo)

	provider, connector, credentials := newStorage(cfg, settingRepo)

	vaultService := service.NewVaultService(userRepo, packageRepo, assetRepo)
	catalogService := service.NewCatalogService(catalogRepo, packageRepo, vaultService)
	validator := service.NewValidator(cfg.StorageBackend)
	provisionService := service.NewProvisionService(vaultService, catalogService, validator, cfg.AppURL)
	importer := service.NewRegistrantImporter(vaultService, catalogService)
	authService := service.NewAuthService(userRepo, sessionRepo, loginCodeRepo, pruner, mailer.New(cfg), cfg)
	adminService := service.NewAdminService(adminSessionRepo, pruner, cfg)
	mediaService := service.NewMediaService(assetRepo, signing.NewStreamTokens(cfg.SessionSecret), provider, cfg.StreamTokenTTL())
	storageService := service.NewStorageService(cfg.StorageBackend, provider, connector, credentials)

	isProduction := cfg.IsProduction()
	guard := middleware.NewRateGuard(limiter)
	userSession := middleware.NewUserSessionMiddleware(authService, cfg.SessionCookieName)
	adminSession := middleware.NewAdminSessionMiddleware(adminService, cfg.AdminSessionCookieName)
	webhookSignature := middleware.NewWebhookSignatureMiddleware(signing.NewWebhookVerifier(cfg.WebhookSecret, cfg.WebhookTolerance()))
	csrf := middleware.NewCSRFMiddleware(isProduction)
	jsonBodyLimit := middleware.NewBodyLimitMiddleware(config.MaxJSONBodySize)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isProduction)

	healthHandler := handler.NewHealthHandler(db)
	authHandler := handler.NewAuthHandler(authService, guard, cfg.SessionCookieName, isProduction)
	vaultHandler := handler.NewVaultHandler(vaultService)
	mediaHandler := handler.NewMediaHandler(mediaService)
	provisionHandler := handler.NewProvisionHandler(provisionService)
	adminHandler := handler.NewAdminHandler(
		adminService, vaultService, importer, catalogService, validator, guard,
		adminSession.Handler, cfg.AdminSessionCookieName, isProduction,
	)
	storageHandler := handler.NewStorageHandler(storageService, isProduction)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeaders.Handler)

	// Media relays are not bound by the request timeout.
	r.Group(func(r chi.Router) {
		r.Use(userSession.Handler)
		r.Get("/api/stream/{assetId}", mediaHandler.Stream)
		r.Get("/api/material/{assetId}", mediaHandler.Material)
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

		r.Get("/health", healthHandler.Health)

		r.Route("/api/auth", func(r chi.Router) {
			r.Use(jsonBodyLimit.Handler)
			r.Mount("/", authHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(userSession.Handler)
			r.Get("/api/vault", vaultHandler.GetVault)
			r.Get("/api/stream-ticket/{assetId}", mediaHandler.StreamTicket)
		})

		r.Route("/api/webhooks", func(r chi.Router) {
			r.Use(guard.PerIP("webhook", config.WebhookRateLimit, config.WebhookRateWindow))
			r.Use(jsonBodyLimit.Handler)
			r.Use(webhookSignature.Handler)
			r.Post("/provision-vault", provisionHandler.ProvisionVault)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(csrf.Handler)
			r.Route("/storage", func(r chi.Router) {
				r.Use(adminSession.Handler)
				r.Mount("/", storageHandler.Routes())
			})
			r.Mount("/", adminHandler.Routes())
		})

		if cfg.StaticDir != "" {
			r.Handle("/*", handler.NewSPAHandler(cfg.StaticDir, ""))
		}
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("storage", string(cfg.StorageBackend)).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newStorage builds the configured media backend. Drive also gets the
// consent connector and the credential store behind it.
func newStorage(cfg *config.Config, settings repository.SettingRepository) (storage.Provider, *storage.DriveConnector, *service.DriveCredentials) {
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		provider, err := storage.NewS3Provider(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure s3 storage")
		}
		return provider, nil, nil
	default:
		oauthConfig := storage.NewDriveOAuthConfig(cfg)
		credentials := service.NewDriveCredentials(settings, cfg)
		provider := storage.NewDriveProvider(oauthConfig, credentials, &http.Client{})
		connector := storage.NewDriveConnector(oauthConfig, &http.Client{Timeout: config.StorageMetadataTimeout})
		return provider, connector, credentials
	}
}

func setupLogger(cfg *config.Config) {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.IsProduction() {
		out = os.Stderr
	}
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}
	log.Logger = log.Output(out)

	setLogLevel(cfg.LogLevel)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
