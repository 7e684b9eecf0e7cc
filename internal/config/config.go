package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store types
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
)

// Narrator backends
const (
	NarratorSystem = "system"
	NarratorTTS    = "tts"
	NarratorOff    = "off"
)

// Config holds application configuration
type Config struct {
	StoreType        string
	DataDir          string
	DatabasePath     string
	DatabaseURL      string
	SettingsFile     string
	HistoryRetention int

	Narrator      string
	NarratorVoice string
	TTSCacheDir   string
	TTSPlayer     string

	SESRegion    string
	SESFromEmail string
	SESFromName  string

	Debug bool

	// Settings are the user-editable preferences from SettingsFile,
	// with ROUNDS_PER_SESSION and PASS_THRESHOLD applied on top.
	Settings *Settings
}

// Load reads configuration from a .env file, the settings file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	dataDir := getEnv("DATA_DIR", "./data")
	cfg := &Config{
		StoreType:        strings.ToLower(getEnv("STORE_TYPE", StoreFile)),
		DataDir:          dataDir,
		DatabasePath:     getEnv("DB_PATH", filepath.Join(dataDir, "smartkids.db")),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		SettingsFile:     getEnv("SETTINGS_FILE", filepath.Join(dataDir, "settings.toml")),
		HistoryRetention: getEnvInt("HISTORY_RETENTION", 50),
		Narrator:         strings.ToLower(getEnv("NARRATOR", NarratorSystem)),
		NarratorVoice:    getEnv("NARRATOR_VOICE", ""),
		TTSCacheDir:      getEnv("TTS_CACHE_DIR", filepath.Join(dataDir, "tts")),
		TTSPlayer:        getEnv("TTS_PLAYER", ""),
		SESRegion:        getEnv("SES_REGION", "us-east-1"),
		SESFromEmail:     getEnv("SES_FROM_EMAIL", ""),
		SESFromName:      getEnv("SES_FROM_NAME", "Smart Kids"),
		Debug:            getEnvBool("DEBUG", false),
	}

	settings, err := LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	settings.Game.RoundsPerSession = getEnvInt("ROUNDS_PER_SESSION", settings.Game.RoundsPerSession)
	settings.Game.PassThreshold = getEnvFloat("PASS_THRESHOLD", settings.Game.PassThreshold)
	cfg.Settings = settings

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	switch c.StoreType {
	case StoreFile, StoreSQLite:
	case StorePostgres, StoreMySQL:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store type %q", c.StoreType)
		}
	default:
		return fmt.Errorf("unsupported store type: %q", c.StoreType)
	}

	switch c.Narrator {
	case NarratorSystem, NarratorTTS, NarratorOff:
	default:
		return fmt.Errorf("unsupported narrator: %q", c.Narrator)
	}

	if c.HistoryRetention < 10 {
		return fmt.Errorf("history retention must be at least 10, got %d", c.HistoryRetention)
	}

	if c.Settings == nil {
		return errors.New("settings not loaded")
	}
	return c.Settings.Validate()
}

// ReportsEnabled reports whether progress emails can be sent
func (c *Config) ReportsEnabled() bool {
	return c.SESFromEmail != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
