package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"hookflo/internal/pkg/logger"
	"hookflo/internal/platform/config"
	"hookflo/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	dbPath := flag.String("db", "", "Database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logging, "migrate")

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Str("path", cfg.Database.Path).Msg("schema is up to date")
}
