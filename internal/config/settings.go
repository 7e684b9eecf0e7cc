package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Settings are the preferences a parent can change from the settings screen
type Settings struct {
	Game  GameSettings  `toml:"game"`
	Audio AudioSettings `toml:"audio"`

	// LastPlayer is offered as the default profile on startup
	LastPlayer string `toml:"last_player"`
}

// GameSettings tune how sessions are scored
type GameSettings struct {
	RoundsPerSession int     `toml:"rounds_per_session"` // correct answers needed to finish
	PassThreshold    float64 `toml:"pass_threshold"`     // accuracy that counts as a win
}

// AudioSettings toggle sound output
type AudioSettings struct {
	SoundEnabled     bool `toml:"sound_enabled"`
	MusicEnabled     bool `toml:"music_enabled"`
	NarrationEnabled bool `toml:"narration_enabled"`
}

// DefaultSettings returns the settings used when no file exists
func DefaultSettings() *Settings {
	return &Settings{
		Game: GameSettings{
			RoundsPerSession: 10,
			PassThreshold:    0.6,
		},
		Audio: AudioSettings{
			SoundEnabled:     true,
			MusicEnabled:     true,
			NarrationEnabled: true,
		},
	}
}

// LoadSettings reads path, returning defaults if it does not exist.
// Keys missing from the file keep their default values.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return s, nil
}

// Save writes the settings to path atomically
func (s *Settings) Save(path string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename settings file: %w", err)
	}
	return nil
}

// Validate checks ranges
func (s *Settings) Validate() error {
	if s.Game.RoundsPerSession < 1 || s.Game.RoundsPerSession > 50 {
		return fmt.Errorf("rounds per session must be between 1 and 50, got %d", s.Game.RoundsPerSession)
	}
	if s.Game.PassThreshold <= 0 || s.Game.PassThreshold > 1 {
		return fmt.Errorf("pass threshold must be in (0, 1], got %v", s.Game.PassThreshold)
	}
	return nil
}
