// Package store persists player profiles.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartkids/internal/models"
)

var (
	ErrNotFound    = errors.New("profile not found")
	ErrCorruptData = errors.New("corrupt profile data")
	ErrPersistence = errors.New("failed to persist profile")
)

// ProgressStore loads and saves player profiles by name
type ProgressStore interface {
	// Load returns ErrNotFound when no record exists and a
	// *CorruptDataError when the record cannot be used.
	Load(ctx context.Context, name string) (*models.PlayerProfile, error)
	// Save replaces the record atomically; failures are *PersistenceError.
	Save(ctx context.Context, profile *models.PlayerProfile) error
	// ListPlayers returns the sorted names of all loadable records
	ListPlayers(ctx context.Context) ([]string, error)
	// Quarantine moves a record aside under a new key so a fresh profile
	// can be created without losing the old data. It returns the new key.
	Quarantine(ctx context.Context, name string) (string, error)
}

// CorruptDataError reports a record that exists but cannot be loaded
type CorruptDataError struct {
	Name   string
	Reason string
	Err    error
}

func (e *CorruptDataError) Error() string {
	msg := fmt.Sprintf("corrupt profile %q: %s", e.Name, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

func (e *CorruptDataError) Is(target error) bool { return target == ErrCorruptData }

// PersistenceError reports a failed save. The in-memory profile is still
// valid and the save can be retried.
type PersistenceError struct {
	Name string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s profile %q: %v", e.Op, e.Name, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// quarantineKey names the preserved copy of a corrupt record
func quarantineKey(name string, now time.Time) string {
	return name + ".corrupt-" + now.UTC().Format("20060102T150405.000000000")
}

// IsQuarantineKey reports whether key was produced by Quarantine
func IsQuarantineKey(key string) bool {
	return strings.Contains(key, ".corrupt-")
}
