package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"smartkids/internal/config"
	"smartkids/internal/database"
	"smartkids/migrations"
)

// Open returns the store selected by cfg.StoreType and a function that
// releases it. SQL stores are migrated before use.
func Open(ctx context.Context, cfg *config.Config) (ProgressStore, func() error, error) {
	if cfg.StoreType == config.StoreFile {
		s, err := NewFileStore(cfg.DataDir, cfg.HistoryRetention)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", s.Dir()).Msg("Using file progress store")
		return s, func() error { return nil }, nil
	}

	if cfg.StoreType == config.StoreSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Str("type", cfg.StoreType).Msg("Using database progress store")
	return NewSQLStore(db, cfg.HistoryRetention), db.Close, nil
}
