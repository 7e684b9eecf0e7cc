package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseGameID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    GameID
		wantErr bool
	}{
		{name: "stable id", input: "counting", want: Counting},
		{name: "display name", input: "数一数", want: Counting},
		{name: "upper case id", input: "SIMPLE_MATH", want: SimpleMath},
		{name: "padded", input: "  interval ", want: Interval},
		{name: "unknown", input: "chess", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGameID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGameID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownGame) {
					t.Errorf("expected ErrUnknownGame, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseGameID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestClampDifficulty(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -3, want: 1},
		{in: 0, want: 1},
		{in: 1, want: 1},
		{in: 7, want: 7},
		{in: 10, want: 10},
		{in: 11, want: 10},
	}
	for _, tt := range tests {
		if got := ClampDifficulty(tt.in); got != tt.want {
			t.Errorf("ClampDifficulty(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOverrideJSON(t *testing.T) {
	type wrapper struct {
		O Override `json:"o"`
	}

	data, err := json.Marshal(wrapper{O: NoOverride})
	if err != nil {
		t.Fatalf("marshal unset: %v", err)
	}
	if string(data) != `{"o":null}` {
		t.Errorf("unset override encoded as %s", data)
	}

	data, err = json.Marshal(wrapper{O: OverrideLevel(3)})
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if string(data) != `{"o":3}` {
		t.Errorf("set override encoded as %s", data)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"o":7}`), &w); err != nil {
		t.Fatalf("unmarshal set: %v", err)
	}
	if level, ok := w.O.Get(); !ok || level != 7 {
		t.Errorf("decoded override = (%d, %v), want (7, true)", level, ok)
	}

	w = wrapper{O: OverrideLevel(5)}
	if err := json.Unmarshal([]byte(`{"o":null}`), &w); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if w.O.IsSet() {
		t.Error("null should decode to unset override")
	}

	w = wrapper{}
	if err := json.Unmarshal([]byte(`{}`), &w); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if w.O.IsSet() {
		t.Error("missing field should decode to unset override")
	}

	if err := json.Unmarshal([]byte(`{"o":"hard"}`), &w); err == nil {
		t.Error("expected error for non-numeric override")
	}
}

func TestOverrideValidate(t *testing.T) {
	if err := NoOverride.Validate(); err != nil {
		t.Errorf("unset override should be valid, got %v", err)
	}
	if err := OverrideLevel(10).Validate(); err != nil {
		t.Errorf("level 10 should be valid, got %v", err)
	}
	if err := OverrideLevel(0).Validate(); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("level 0 should be ErrInvalidDifficulty, got %v", err)
	}
	if err := OverrideLevel(11).Validate(); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("level 11 should be ErrInvalidDifficulty, got %v", err)
	}
}

func TestAppendHistoryEvictsOldest(t *testing.T) {
	g := NewGameProgress(1)
	for i := 0; i < 7; i++ {
		g.AppendHistory(5, RoundOutcome{Correct: true, ResponseTimeMs: i, DifficultyAtTime: 1})
	}
	if len(g.History) != 5 {
		t.Fatalf("history length = %d, want 5", len(g.History))
	}
	if g.History[0].ResponseTimeMs != 2 || g.History[4].ResponseTimeMs != 6 {
		t.Errorf("expected entries 2..6 most-recent-last, got first=%d last=%d",
			g.History[0].ResponseTimeMs, g.History[4].ResponseTimeMs)
	}
}

func TestAgeMonthsAt(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		profile PlayerProfile
		want    int
	}{
		{name: "no birth date", profile: PlayerProfile{AgeMonths: 50}, want: 50},
		{name: "exact months", profile: PlayerProfile{BirthDate: "2022-10-19"}, want: 48},
		{name: "day not reached", profile: PlayerProfile{BirthDate: "2022-10-20"}, want: 47},
		{name: "bad date falls back", profile: PlayerProfile{AgeMonths: 30, BirthDate: "soon"}, want: 30},
		{name: "future date", profile: PlayerProfile{BirthDate: "2027-01-01"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.AgeMonthsAt(now); got != tt.want {
				t.Errorf("AgeMonthsAt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := NewPlayerProfile("Lily", 48, time.Now())
	p.Game(Counting, 8).AppendHistory(0, RoundOutcome{Correct: true, DifficultyAtTime: 8})
	p.UnlockAchievement("first_session")

	c := p.Clone()
	c.Games[Counting].History[0].Correct = false
	c.Games[Counting].GamesPlayed = 9
	c.Achievements[0] = "changed"

	if !p.Games[Counting].History[0].Correct || p.Games[Counting].GamesPlayed != 0 {
		t.Error("mutating the clone changed the original game progress")
	}
	if p.Achievements[0] != "first_session" {
		t.Error("mutating the clone changed the original achievements")
	}
}

func TestNormalize(t *testing.T) {
	p := &PlayerProfile{
		Name:  "Tom",
		Coins: -5,
		Games: map[GameID]*GameProgress{
			Counting: {
				GamesPlayed:       2,
				GamesWon:          5,
				CurrentDifficulty: 0,
				ManualOverride:    OverrideLevel(14),
				History:           []RoundOutcome{{Correct: true, ResponseTimeMs: -1, DifficultyAtTime: 0}},
			},
			SimpleMath: nil,
		},
	}
	if !p.Normalize(0) {
		t.Fatal("expected profile to be repairable")
	}
	g := p.Games[Counting]
	if p.Coins != 0 {
		t.Errorf("coins = %d, want 0", p.Coins)
	}
	if g.GamesWon != 2 {
		t.Errorf("games_won = %d, want clamped to games_played 2", g.GamesWon)
	}
	if g.CurrentDifficulty != 1 {
		t.Errorf("current_difficulty = %d, want 1", g.CurrentDifficulty)
	}
	if level, _ := g.ManualOverride.Get(); level != 10 {
		t.Errorf("override = %d, want 10", level)
	}
	if g.History[0].ResponseTimeMs != 0 || g.History[0].DifficultyAtTime != 1 {
		t.Errorf("history entry not repaired: %+v", g.History[0])
	}
	if _, ok := p.Games[SimpleMath]; ok {
		t.Error("nil game entry should be dropped")
	}

	if (&PlayerProfile{}).Normalize(0) {
		t.Error("profile without a name must not be repairable")
	}
}

func TestMigrateLegacy(t *testing.T) {
	data := []byte(`{
		"player_name": "小朋友",
		"created_at": "2025-03-01T10:00:00.123456",
		"total_coins": 42,
		"total_stars": 7,
		"birth_date": "2021-05-01",
		"achievements": ["first_win"],
		"daily_streak": 3,
		"difficulty_settings": {"counting": 4, "bogus": 2},
		"games": {
			"simple_math": {
				"level": 1,
				"games_played": 3,
				"games_won": 2,
				"current_difficulty": 6,
				"history": [
					{"timestamp": "x", "won": true, "score": 90, "time_taken": 12.5, "difficulty": 6},
					{"timestamp": "y", "won": false, "score": 20, "time_taken": 30, "difficulty": 6}
				]
			},
			"chess": {"games_played": 1}
		}
	}`)

	legacy, err := ParseLegacy(data)
	if err != nil {
		t.Fatalf("ParseLegacy() error = %v", err)
	}
	p := MigrateLegacy(legacy, 0)

	if p.Name != "小朋友" || p.Coins != 42 || p.Stars != 7 || p.DailyStreak != 3 {
		t.Errorf("scalar fields not migrated: %+v", p)
	}
	if p.BirthDate != "2021-05-01" {
		t.Errorf("birth date = %q", p.BirthDate)
	}
	if p.CreatedAt.IsZero() {
		t.Error("created_at should be parsed")
	}
	if !p.HasAchievement("first_win") {
		t.Error("achievement not migrated")
	}

	math := p.Games[SimpleMath]
	if math == nil {
		t.Fatal("simple_math progress missing")
	}
	if math.GamesPlayed != 3 || math.GamesWon != 2 || math.CurrentDifficulty != 6 {
		t.Errorf("simple_math counters = %+v", math)
	}
	if len(math.History) != 2 || math.History[0].ResponseTimeMs != 12500 || math.History[1].Correct {
		t.Errorf("history = %+v", math.History)
	}

	if level, ok := p.Games[Counting].ManualOverride.Get(); !ok || level != 4 {
		t.Errorf("counting override = (%d, %v), want (4, true)", level, ok)
	}
	if len(p.Games) != 2 {
		t.Errorf("expected 2 known games, got %d", len(p.Games))
	}
}
