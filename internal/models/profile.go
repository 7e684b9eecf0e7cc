package models

import (
	"slices"
	"time"
)

// DefaultHistoryRetention is how many round outcomes each game keeps
const DefaultHistoryRetention = 50

// RoundOutcome is the result of a single answered question
type RoundOutcome struct {
	Correct          bool `json:"correct"`
	ResponseTimeMs   int  `json:"response_time_ms"`
	DifficultyAtTime int  `json:"difficulty_at_time"`
}

// GameProgress is a player's record for one mini-game
type GameProgress struct {
	GamesPlayed       int            `json:"games_played"`
	GamesWon          int            `json:"games_won"`
	CurrentDifficulty int            `json:"current_difficulty"`
	ManualOverride    Override       `json:"manual_difficulty_override"`
	History           []RoundOutcome `json:"history"`
}

// NewGameProgress creates an empty record starting at the given difficulty
func NewGameProgress(difficulty int) *GameProgress {
	return &GameProgress{CurrentDifficulty: ClampDifficulty(difficulty)}
}

// AppendHistory adds outcomes at the end and evicts the oldest beyond retention
func (g *GameProgress) AppendHistory(retention int, outcomes ...RoundOutcome) {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	g.History = append(g.History, outcomes...)
	if excess := len(g.History) - retention; excess > 0 {
		g.History = slices.Clone(g.History[excess:])
	}
}

// WinRate returns games_won / games_played, or 0 before the first game
func (g *GameProgress) WinRate() float64 {
	if g.GamesPlayed == 0 {
		return 0
	}
	return float64(g.GamesWon) / float64(g.GamesPlayed)
}

// Clone returns a deep copy
func (g *GameProgress) Clone() *GameProgress {
	if g == nil {
		return nil
	}
	c := *g
	if g.History != nil {
		c.History = slices.Clone(g.History)
	}
	return &c
}

// PlayerProfile is everything persisted for one player
type PlayerProfile struct {
	Name         string                   `json:"name"`
	AgeMonths    int                      `json:"age_months"`
	BirthDate    string                   `json:"birth_date,omitempty"`
	Coins        int                      `json:"coins"`
	Stars        int                      `json:"stars"`
	Games        map[GameID]*GameProgress `json:"per_game_state"`
	DailyStreak  int                      `json:"daily_streak"`
	Achievements []string                 `json:"achievements,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	LastPlayedAt time.Time                `json:"last_played_at"`
}

// NewPlayerProfile creates a fresh profile for a newly registered player
func NewPlayerProfile(name string, ageMonths int, now time.Time) *PlayerProfile {
	if ageMonths < 0 {
		ageMonths = 0
	}
	return &PlayerProfile{
		Name:      name,
		AgeMonths: ageMonths,
		Games:     make(map[GameID]*GameProgress),
		CreatedAt: now,
	}
}

// Game returns the record for id, creating it at the given difficulty if missing
func (p *PlayerProfile) Game(id GameID, difficulty int) *GameProgress {
	if p.Games == nil {
		p.Games = make(map[GameID]*GameProgress)
	}
	g, ok := p.Games[id]
	if !ok || g == nil {
		g = NewGameProgress(difficulty)
		p.Games[id] = g
	}
	return g
}

// AgeMonthsAt returns the age in months, derived from the birth date when one is set
func (p *PlayerProfile) AgeMonthsAt(now time.Time) int {
	if p.BirthDate == "" {
		return p.AgeMonths
	}
	birth, err := time.Parse(time.DateOnly, p.BirthDate)
	if err != nil {
		return p.AgeMonths
	}
	months := (now.Year()-birth.Year())*12 + int(now.Month()) - int(birth.Month())
	if now.Day() < birth.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// HasAchievement reports whether id was already unlocked
func (p *PlayerProfile) HasAchievement(id string) bool {
	return slices.Contains(p.Achievements, id)
}

// UnlockAchievement records id once; it returns true if it was new
func (p *PlayerProfile) UnlockAchievement(id string) bool {
	if p.HasAchievement(id) {
		return false
	}
	p.Achievements = append(p.Achievements, id)
	return true
}

// Clone returns a deep copy
func (p *PlayerProfile) Clone() *PlayerProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Games != nil {
		c.Games = make(map[GameID]*GameProgress, len(p.Games))
		for id, g := range p.Games {
			c.Games[id] = g.Clone()
		}
	}
	if p.Achievements != nil {
		c.Achievements = slices.Clone(p.Achievements)
	}
	return &c
}

// Normalize repairs values a hand-edited or older file may carry: missing
// maps, negative counters, out-of-range difficulties and overlong history.
// It returns false when the profile cannot be repaired.
func (p *PlayerProfile) Normalize(retention int) bool {
	if p.Name == "" {
		return false
	}
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	p.AgeMonths = max(p.AgeMonths, 0)
	p.Coins = max(p.Coins, 0)
	p.Stars = max(p.Stars, 0)
	p.DailyStreak = max(p.DailyStreak, 0)
	if p.Games == nil {
		p.Games = make(map[GameID]*GameProgress)
	}
	for id, g := range p.Games {
		if g == nil {
			delete(p.Games, id)
			continue
		}
		g.GamesPlayed = max(g.GamesPlayed, 0)
		g.GamesWon = min(max(g.GamesWon, 0), g.GamesPlayed)
		g.CurrentDifficulty = ClampDifficulty(g.CurrentDifficulty)
		if level, ok := g.ManualOverride.Get(); ok {
			g.ManualOverride = OverrideLevel(ClampDifficulty(level))
		}
		for i := range g.History {
			g.History[i].ResponseTimeMs = max(g.History[i].ResponseTimeMs, 0)
			g.History[i].DifficultyAtTime = ClampDifficulty(g.History[i].DifficultyAtTime)
		}
		if excess := len(g.History) - retention; excess > 0 {
			g.History = slices.Clone(g.History[excess:])
		}
	}
	return true
}
