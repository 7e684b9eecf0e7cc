package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"smartkids/internal/models"
	"smartkids/internal/store"
	"smartkids/internal/utils"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData is the complete export of a store
type BackupData struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	StoreType  string                  `json:"store_type"`
	Players    []*models.PlayerProfile `json:"players"`
	// Skipped lists records that could not be read at export time
	Skipped []string `json:"skipped,omitempty"`
}

// ImportStats counts what an import did
type ImportStats struct {
	Imported int
	Skipped  int
}

// BackupService copies profiles between a store and JSON backup files
type BackupService struct {
	store     store.ProgressStore
	storeType string
	retention int
	now       func() time.Time
}

// NewBackupService creates a backup service for s
func NewBackupService(s store.ProgressStore, storeType string, retention int) *BackupService {
	if retention <= 0 {
		retention = models.DefaultHistoryRetention
	}
	return &BackupService{store: s, storeType: storeType, retention: retention, now: time.Now}
}

// Export writes every readable profile to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) (*BackupData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	backup, err := s.ExportToWriter(ctx, file)
	if cerr := file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close output file: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", outputPath).Int("players", len(backup.Players)).Int("skipped", len(backup.Skipped)).Msg("Progress exported")
	return backup, nil
}

// ExportToWriter writes the backup as indented JSON. Corrupt records are
// listed in Skipped instead of failing the whole export.
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	names, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: s.now().UTC(),
		StoreType:  s.storeType,
		Players:    make([]*models.PlayerProfile, 0, len(names)),
	}
	for _, name := range names {
		p, err := s.store.Load(ctx, name)
		if errors.Is(err, store.ErrCorruptData) {
			log.Warn().Err(err).Str("player", name).Msg("Skipping corrupt profile")
			backup.Skipped = append(backup.Skipped, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to export %q: %w", name, err)
		}
		backup.Players = append(backup.Players, p)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

// Import restores profiles from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string, overwrite bool) (ImportStats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.ImportFromReader(ctx, file, overwrite)
}

// ImportFromReader restores profiles from a backup stream. Existing
// players are kept unless overwrite is set.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, overwrite bool) (ImportStats, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return ImportStats{}, fmt.Errorf("failed to decode backup: %w", err)
	}
	log.Info().Str("version", backup.Version).Time("exported_at", backup.ExportedAt).Str("store_type", backup.StoreType).Msg("Importing backup")

	var stats ImportStats
	for _, p := range backup.Players {
		if p == nil {
			continue
		}
		imported, err := s.importProfile(ctx, p, overwrite)
		if err != nil {
			return stats, err
		}
		if imported {
			stats.Imported++
		} else {
			stats.Skipped++
		}
	}
	log.Info().Int("imported", stats.Imported).Int("skipped", stats.Skipped).Msg("Backup import completed")
	return stats, nil
}

// ImportLegacy converts a progress file from the first desktop release
// and saves it as a profile.
func (s *BackupService) ImportLegacy(ctx context.Context, data []byte, overwrite bool) (*models.PlayerProfile, error) {
	legacy, err := models.ParseLegacy(data)
	if err != nil {
		return nil, err
	}
	p := models.MigrateLegacy(legacy, s.retention)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	if p.BirthDate != "" {
		p.AgeMonths = p.AgeMonthsAt(s.now())
	}
	imported, err := s.importProfile(ctx, p, overwrite)
	if err != nil {
		return nil, err
	}
	if !imported {
		return nil, fmt.Errorf("player %q already exists", p.Name)
	}
	return p, nil
}

func (s *BackupService) importProfile(ctx context.Context, p *models.PlayerProfile, overwrite bool) (bool, error) {
	if err := utils.ValidatePlayerName(p.Name); err != nil {
		return false, fmt.Errorf("invalid player in backup: %w", err)
	}
	if !overwrite {
		_, err := s.store.Load(ctx, p.Name)
		switch {
		case err == nil:
			log.Info().Str("player", p.Name).Msg("Player exists, skipping")
			return false, nil
		case errors.Is(err, store.ErrNotFound):
		case errors.Is(err, store.ErrCorruptData):
			// never overwrite unreadable data silently
			if _, qerr := s.store.Quarantine(ctx, p.Name); qerr != nil {
				return false, qerr
			}
		default:
			return false, err
		}
	}
	p.Normalize(s.retention)
	if err := s.store.Save(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}
