package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"hookflo/internal/engine/usage"
	"hookflo/internal/pkg/logger"
	"hookflo/internal/platform/audit"
	"hookflo/internal/platform/config"
	"hookflo/internal/platform/database"
	"hookflo/internal/platform/repositories"
	"hookflo/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run a single retention pass and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logging, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenAndMigrate(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	usageSvc := usage.NewService(repositories.NewUsageRepository(db), cfg.Usage)
	auditLog := audit.NewLogger(db)
	retention := workers.NewRetention(usageSvc, repositories.NewNotificationLogRepository(db), auditLog, cfg.Usage.RetentionDays)

	if *once {
		if err := retention.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("retention pass failed")
		}
		return
	}

	interval := cfg.Usage.PruneInterval
	if interval <= 0 {
		interval = time.Hour
	}
	log.Info().Dur("interval", interval).Int("retention_days", cfg.Usage.RetentionDays).Msg("worker starting")
	workers.Every(ctx, interval, "retention", retention.Run)
}
