package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"hookflo/internal/api"
	"hookflo/internal/api/handlers"
	"hookflo/internal/api/middleware"
	"hookflo/internal/engine/notifications"
	"hookflo/internal/engine/security"
	"hookflo/internal/engine/templates"
	"hookflo/internal/engine/usage"
	"hookflo/internal/engine/webhooks"
	"hookflo/internal/pkg/logger"
	"hookflo/internal/platform/audit"
	"hookflo/internal/platform/auth"
	"hookflo/internal/platform/config"
	"hookflo/internal/platform/database"
	"hookflo/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	logger.Init(cfg.Logging, "server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenAndMigrate(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	encryptor, err := security.NewEncryptor(cfg.Encryption)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise encryption")
	}
	strategy, err := webhooks.NewStrategy(cfg.Webhooks)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid webhook auth modes")
	}

	// Repositories
	webhookRepo := repositories.NewCachedWebhookRepository(repositories.NewWebhookRepository(db), cfg.Webhooks.CacheTTL)
	logRepo := repositories.NewNotificationLogRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	usageRepo := repositories.NewUsageRepository(db)

	// Services
	auditLog := audit.NewLogger(db)
	defer auditLog.Wait()

	registry := templates.NewRegistry(templateRepo)
	usageSvc := usage.NewService(usageRepo, cfg.Usage)
	dispatcher := notifications.NewDispatcher(
		notifications.NewResendSender(cfg.Notifications.Email),
		notifications.NewSlackWebhookSender(cfg.Notifications.Slack),
		registry,
		logRepo,
		cfg.Notifications.Email.FromAddress,
	)
	verifier := webhooks.NewVerifier(webhookRepo, encryptor, dispatcher, usageSvc, strategy)
	webhookSvc := webhooks.NewService(webhookRepo, encryptor, strategy)
	tokenSvc := auth.NewTokenService(cfg.JWT)

	rateLimiter := middleware.NewRateLimiter()
	go rateLimiter.Run(ctx)

	metrics := handlers.NewMetrics()
	router := api.NewRouter(&api.Dependencies{
		IngestHandler:  handlers.NewIngestHandler(verifier, auditLog, metrics, cfg.Webhooks.MaxBodySize),
		WebhookHandler: handlers.NewWebhookHandler(webhookSvc, logRepo, auditLog),
		AuditHandler:   handlers.NewAuditHandler(webhookSvc, auditLog),
		AccountHandler: handlers.NewAccountHandler(registry, usageSvc),
		HealthHandler:  handlers.NewHealthHandler(db),
		Metrics:        metrics,
		AuthMiddleware: middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:    rateLimiter,
		RateLimits:     cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
