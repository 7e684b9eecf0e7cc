package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// LegacyProgress is the single-file progress.json written by the first
// desktop release. Only the fields that carry over are decoded.
type LegacyProgress struct {
	PlayerName         string                     `json:"player_name"`
	BirthDate          string                     `json:"birth_date"`
	CreatedAt          string                     `json:"created_at"`
	LastPlayed         string                     `json:"last_played"`
	TotalCoins         int                        `json:"total_coins"`
	TotalStars         int                        `json:"total_stars"`
	DailyStreak        int                        `json:"daily_streak"`
	Achievements       []string                   `json:"achievements"`
	DifficultySettings map[string]int             `json:"difficulty_settings"`
	Games              map[string]LegacyGameState `json:"games"`
}

// LegacyGameState is one entry of the legacy "games" object
type LegacyGameState struct {
	GamesPlayed       int                  `json:"games_played"`
	GamesWon          int                  `json:"games_won"`
	CurrentDifficulty int                  `json:"current_difficulty"`
	History           []LegacyHistoryEntry `json:"history"`
}

// LegacyHistoryEntry recorded whole games, not rounds
type LegacyHistoryEntry struct {
	Won        bool    `json:"won"`
	Score      int     `json:"score"`
	TimeTaken  float64 `json:"time_taken"`
	Difficulty int     `json:"difficulty"`
}

// ParseLegacy decodes a legacy progress file
func ParseLegacy(data []byte) (*LegacyProgress, error) {
	var legacy LegacyProgress
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to decode legacy progress: %w", err)
	}
	return &legacy, nil
}

// MigrateLegacy converts a legacy progress file into a profile. Each legacy
// history entry becomes one outcome; the entry's time_taken (seconds) is
// kept as the response time. Unknown game keys are dropped.
func MigrateLegacy(old *LegacyProgress, retention int) *PlayerProfile {
	if old == nil {
		return nil
	}
	created := parseLegacyTime(old.CreatedAt)
	p := NewPlayerProfile(old.PlayerName, 0, created)
	p.BirthDate = old.BirthDate
	p.Coins = old.TotalCoins
	p.Stars = old.TotalStars
	p.DailyStreak = old.DailyStreak
	p.LastPlayedAt = parseLegacyTime(old.LastPlayed)
	for _, a := range old.Achievements {
		p.UnlockAchievement(a)
	}

	for key, state := range old.Games {
		id := GameID(key)
		if !id.Valid() {
			continue
		}
		g := p.Game(id, state.CurrentDifficulty)
		g.GamesPlayed = state.GamesPlayed
		g.GamesWon = state.GamesWon
		for _, h := range state.History {
			g.AppendHistory(retention, RoundOutcome{
				Correct:          h.Won,
				ResponseTimeMs:   int(math.Round(h.TimeTaken * 1000)),
				DifficultyAtTime: h.Difficulty,
			})
		}
	}
	for key, level := range old.DifficultySettings {
		id := GameID(key)
		if !id.Valid() {
			continue
		}
		p.Game(id, level).ManualOverride = OverrideLevel(level)
	}

	p.Normalize(retention)
	return p
}

func parseLegacyTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// Written without a zone, optionally with microseconds
	for _, layout := range []string{"2006-01-02T15:04:05.999999", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
