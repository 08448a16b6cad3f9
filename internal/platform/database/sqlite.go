package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"hookflo/internal/platform/config"
)

const memoryPath = ":memory:"

// Open connects to the SQLite registry at cfg.Path, creating the parent directory
// if needed. An in-memory path is pinned to a single connection so every query
// sees the same database.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	path := cfg.Path
	if path == "" {
		path = memoryPath
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if path == memoryPath {
		db.SetMaxOpenConns(1)
	} else {
		maxConns := cfg.MaxConnections
		if maxConns <= 0 {
			maxConns = 10
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenAndMigrate opens the registry and applies the schema.
func OpenAndMigrate(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
