// @title           Media Webhooks API
// @version         1.0
// @description     Media lifecycle registry with signed, retried webhook delivery.
// @BasePath        /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	_ "media-webhooks-api/docs"
	"media-webhooks-api/internal/api"
	"media-webhooks-api/internal/api/handlers"
	"media-webhooks-api/internal/auth"
	"media-webhooks-api/internal/config"
	"media-webhooks-api/internal/db"
	"media-webhooks-api/internal/logging"
	"media-webhooks-api/internal/media"
	"media-webhooks-api/internal/webhook"
)

func main() {
	cfgPath := os.Getenv("MW_CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	if err := logging.Setup(cfg); err != nil {
		log.Fatal().Err(err).Msg("Logger setup failed")
	}

	log.Info().
		Str("version", "1.0.0").
		Str("listen_addr", cfg.ListenAddr).
		Str("db_driver", cfg.Database.Driver).
		Msg("Media Webhooks API starting")

	if cfg.Database.Driver == db.DriverSQLite && !strings.HasPrefix(cfg.Database.DSN, ":memory:") {
		dir := filepath.Dir(strings.TrimPrefix(cfg.Database.DSN, "file:"))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create database directory")
		}
	}

	// DB + migrations
	database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	log.Info().Msg("Running database migrations")
	if err := db.RunMigrations(database, cfg.Database.Driver, cfg.Database.DSN); err != nil {
		log.Fatal().Err(err).Msg("Database migration failed")
	}

	// Webhook delivery engine
	var metrics *webhook.Metrics
	if cfg.Metrics.Enabled {
		metrics = webhook.NewMetrics(prometheus.DefaultRegisterer)
	}
	whRepo := &webhook.SQLRepo{DB: database, Driver: cfg.Database.Driver}
	executor := webhook.NewExecutor(cfg.Timeout(), cfg.Webhooks.UserAgent)
	scheduler := webhook.NewScheduler(executor, whRepo, cfg.Backoff(), metrics)
	dispatcher := webhook.NewDispatcher(webhook.NewResolver(whRepo), scheduler, whRepo, metrics)

	// Media lifecycle
	mediaSvc := &media.Service{
		Repo:     &media.SQLRepo{DB: database, Driver: cfg.Database.Driver},
		Notifier: dispatcher,
	}

	var oidcVerifier *auth.OIDCVerifier
	if cfg.OIDC.Enabled {
		log.Info().Str("issuer", cfg.OIDC.IssuerURL).Msg("Initializing OIDC authentication")
		initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		oidcVerifier, err = auth.NewOIDCVerifier(
			initCtx,
			cfg.OIDC.IssuerURL,
			cfg.OIDC.ClientID,
			cfg.OIDC.Audience,
			cfg.OIDC.TenantClaim,
			cfg.OIDC.AdminRole,
		)
		cancel()
		if err != nil {
			log.Warn().
				Err(err).
				Msg("OIDC enabled but failed to initialize, falling back to API key authentication only")
			cfg.OIDC.Enabled = false
		} else {
			log.Info().
				Str("issuer", cfg.OIDC.IssuerURL).
				Str("client_id", cfg.OIDC.ClientID).
				Str("tenant_claim", cfg.OIDC.TenantClaim).
				Str("admin_role", cfg.OIDC.AdminRole).
				Msg("OIDC authentication enabled")
		}
	}

	authHandler := auth.Auth{
		APIKey:       cfg.AdminKey,
		OIDCEnabled:  cfg.OIDC.Enabled,
		OIDCVerifier: oidcVerifier,
	}

	routes := api.Routes{
		Health:   handlers.HealthHandler{DB: database},
		Media:    &handlers.MediaHandler{Auth: authHandler, Service: mediaSvc},
		Webhooks: &handlers.WebhookHandler{Auth: authHandler, Repo: whRepo},
	}
	if cfg.Metrics.Enabled {
		routes.Metrics = promhttp.Handler()
		routes.MetricsPath = cfg.Metrics.Path
	}
	router := api.NewRouter(routes)

	// Apply middlewares: logging first, then CORS
	handler := logging.HTTPLogger(router)
	handler = api.CORSMiddleware(handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen_addr", cfg.ListenAddr).
			Msg("Media Webhooks API listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer cancel()

	// Stop taking requests first so no new events are triggered while draining.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Webhook deliveries still in flight at shutdown were cancelled")
	}
	if err := database.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Media Webhooks API stopped")
}
