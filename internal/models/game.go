package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GameID identifies one mini-game type
type GameID string

const (
	FindDifference GameID = "find_difference"
	Counting       GameID = "counting"
	SimpleMath     GameID = "simple_math"
	MusicTheory    GameID = "music_theory"
	StaffReading   GameID = "staff_reading"
	Rhythm         GameID = "rhythm"
	Interval       GameID = "interval"
	Drawing        GameID = "drawing"
)

// AllGames lists every mini-game in menu order
var AllGames = []GameID{
	FindDifference,
	Counting,
	SimpleMath,
	MusicTheory,
	StaffReading,
	Rhythm,
	Interval,
	Drawing,
}

var displayNames = map[GameID]string{
	FindDifference: "找不同",
	Counting:       "数一数",
	SimpleMath:     "算一算",
	MusicTheory:    "音乐",
	StaffReading:   "五线谱",
	Rhythm:         "节奏",
	Interval:       "音程",
	Drawing:        "画画",
}

var (
	ErrUnknownGame       = errors.New("unknown game")
	ErrInvalidDifficulty = errors.New("difficulty out of range")
)

// DisplayName returns the name shown on the menu
func (g GameID) DisplayName() string {
	if name, ok := displayNames[g]; ok {
		return name
	}
	return string(g)
}

// Valid reports whether g is a known game
func (g GameID) Valid() bool {
	_, ok := displayNames[g]
	return ok
}

// ParseGameID accepts either the stable id ("counting") or the display name ("数一数")
func ParseGameID(s string) (GameID, error) {
	s = strings.TrimSpace(s)
	if id := GameID(strings.ToLower(s)); id.Valid() {
		return id, nil
	}
	for id, name := range displayNames {
		if name == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
}

// Difficulty levels are integers in [MinDifficulty, MaxDifficulty]
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// ClampDifficulty forces d into the valid difficulty range
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// ValidateDifficulty returns ErrInvalidDifficulty when d is outside [1,10]
func ValidateDifficulty(d int) error {
	if d < MinDifficulty || d > MaxDifficulty {
		return fmt.Errorf("%w: %d", ErrInvalidDifficulty, d)
	}
	return nil
}

// Override is a manually chosen difficulty level, or unset.
// The zero value is unset.
type Override struct {
	level int
	set   bool
}

// NoOverride is the unset override
var NoOverride = Override{}

// OverrideLevel returns an override fixed at level
func OverrideLevel(level int) Override {
	return Override{level: level, set: true}
}

// Get returns the level and whether the override is set
func (o Override) Get() (int, bool) {
	return o.level, o.set
}

// IsSet reports whether a level was chosen
func (o Override) IsSet() bool {
	return o.set
}

// Validate checks a set override is within range
func (o Override) Validate() error {
	if !o.set {
		return nil
	}
	return ValidateDifficulty(o.level)
}

func (o Override) String() string {
	if !o.set {
		return "unset"
	}
	return fmt.Sprintf("%d", o.level)
}

// MarshalJSON encodes an unset override as null
func (o Override) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.level)
}

// UnmarshalJSON decodes null as unset and a number as a set level
func (o *Override) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = NoOverride
		return nil
	}
	var level int
	if err := json.Unmarshal(data, &level); err != nil {
		return fmt.Errorf("invalid difficulty override: %w", err)
	}
	*o = OverrideLevel(level)
	return nil
}
