package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"smartkids/internal/models"
)

const profileExt = ".json"

// FileStore keeps one JSON document per player in a directory
type FileStore struct {
	dir       string
	retention int
	now       func() time.Time
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, retention int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, retention: retention, now: time.Now}, nil
}

// Dir returns the directory profiles are stored in
func (s *FileStore) Dir() string {
	return s.dir
}

// path escapes the name so that any player name maps to a single visible
// file inside the directory.
func (s *FileStore) path(name string) string {
	escaped := url.QueryEscape(name)
	if strings.HasPrefix(escaped, ".") {
		escaped = "%2E" + escaped[1:]
	}
	return filepath.Join(s.dir, escaped+profileExt)
}

// nameFromFile reverses path for a directory entry
func nameFromFile(file string) (string, bool) {
	if strings.HasPrefix(file, ".") || !strings.HasSuffix(file, profileExt) {
		return "", false
	}
	name, err := url.QueryUnescape(strings.TrimSuffix(file, profileExt))
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

func (s *FileStore) Load(ctx context.Context, name string) (*models.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %q: %w", name, err)
	}

	return decodeProfile(name, data, s.retention)
}

// decodeProfile parses a stored document. Unknown fields are ignored and
// missing ones take their zero values, which Normalize then repairs.
func decodeProfile(name string, data []byte, retention int) (*models.PlayerProfile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &CorruptDataError{Name: name, Reason: "not a JSON object"}
	}

	var p models.PlayerProfile
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, &CorruptDataError{Name: name, Reason: "invalid JSON", Err: err}
	}
	p.Name = name
	if !p.Normalize(retention) {
		return nil, &CorruptDataError{Name: name, Reason: "unrepairable values"}
	}
	return &p, nil
}

func (s *FileStore) Save(ctx context.Context, p *models.PlayerProfile) error {
	if p == nil || p.Name == "" {
		return &PersistenceError{Op: "save", Err: errors.New("profile has no name")}
	}
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Name: p.Name, Op: "save", Err: err}
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return &PersistenceError{Name: p.Name, Op: "encode", Err: err}
	}
	if err := writeFileAtomic(s.path(p.Name), data); err != nil {
		return &PersistenceError{Name: p.Name, Op: "save", Err: err}
	}
	return nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it over path, so readers see either the old or the new document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *FileStore) ListPlayers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if name, ok := nameFromFile(e.Name()); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Quarantine renames the player's file to <file>.corrupt-<timestamp> and
// returns the new path.
func (s *FileStore) Quarantine(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src := s.path(name)
	dst := filepath.Join(s.dir, quarantineKey(filepath.Base(src), s.now()))
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("failed to quarantine profile %q: %w", name, err)
	}
	log.Warn().Str("player", name).Str("path", dst).Msg("Quarantined corrupt profile")
	return dst, nil
}
