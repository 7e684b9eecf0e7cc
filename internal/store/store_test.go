package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"smartkids/internal/models"
)

var testTime = time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

func sampleProfile(name string) *models.PlayerProfile {
	p := models.NewPlayerProfile(name, 48, testTime)
	p.Coins = 120
	p.Stars = 9
	p.DailyStreak = 3
	p.BirthDate = "2022-03-01"
	p.Achievements = []string{"first_session", "first_win"}
	p.LastPlayedAt = testTime.Add(26 * time.Hour)

	counting := p.Game(models.Counting, 8)
	counting.GamesPlayed = 4
	counting.GamesWon = 3
	counting.ManualOverride = models.OverrideLevel(3)
	counting.AppendHistory(50,
		models.RoundOutcome{Correct: true, ResponseTimeMs: 2100, DifficultyAtTime: 3},
		models.RoundOutcome{Correct: false, ResponseTimeMs: 9000, DifficultyAtTime: 3},
		models.RoundOutcome{Correct: true, ResponseTimeMs: 4000, DifficultyAtTime: 3},
	)

	math := p.Game(models.SimpleMath, 8)
	math.GamesPlayed = 1
	math.AppendHistory(50, models.RoundOutcome{Correct: true, ResponseTimeMs: 700, DifficultyAtTime: 8})

	p.Game(models.Drawing, 8)
	return p
}

// assertSameProfile compares timestamps by instant and everything else exactly
func assertSameProfile(t *testing.T, got, want *models.PlayerProfile) {
	t.Helper()
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if !got.LastPlayedAt.Equal(want.LastPlayedAt) {
		t.Errorf("LastPlayedAt = %v, want %v", got.LastPlayedAt, want.LastPlayedAt)
	}
	g, w := got.Clone(), want.Clone()
	g.CreatedAt, w.CreatedAt = time.Time{}, time.Time{}
	g.LastPlayedAt, w.LastPlayedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(g, w) {
		t.Errorf("profile mismatch:\ngot  %+v\nwant %+v", g, w)
		for id, wg := range w.Games {
			if gg := g.Games[id]; !reflect.DeepEqual(gg, wg) {
				t.Errorf("game %s:\ngot  %+v\nwant %+v", id, gg, wg)
			}
		}
	}
}

// runStoreContract exercises behavior every ProgressStore must share
func runStoreContract(t *testing.T, newStore func(t *testing.T) ProgressStore) {
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "nobody")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		want := sampleProfile("mia")
		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := s.Load(ctx, "mia")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		assertSameProfile(t, got, want)
	})

	t.Run("overwrite", func(t *testing.T) {
		s := newStore(t)
		p := sampleProfile("mia")
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		p.Coins = 999
		delete(p.Games, models.Drawing)
		p.Games[models.Counting].ManualOverride = models.NoOverride
		p.Games[models.Counting].AppendHistory(50, models.RoundOutcome{Correct: true, ResponseTimeMs: 1, DifficultyAtTime: 4})
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("second Save() error = %v", err)
		}
		got, err := s.Load(ctx, "mia")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		assertSameProfile(t, got, p)
	})

	t.Run("unusual names", func(t *testing.T) {
		s := newStore(t)
		names := []string{"小明", "Tom & Jerry", "a b", "a+b", "100%", ".hidden"}
		for _, name := range names {
			if err := s.Save(ctx, models.NewPlayerProfile(name, 30, testTime)); err != nil {
				t.Fatalf("Save(%q) error = %v", name, err)
			}
		}
		for _, name := range names {
			got, err := s.Load(ctx, name)
			if err != nil {
				t.Fatalf("Load(%q) error = %v", name, err)
			}
			if got.Name != name || got.AgeMonths != 30 {
				t.Errorf("Load(%q) = %+v", name, got)
			}
		}
		list, err := s.ListPlayers(ctx)
		if err != nil {
			t.Fatalf("ListPlayers() error = %v", err)
		}
		if len(list) != len(names) {
			t.Errorf("ListPlayers() = %q, want %d names", list, len(names))
		}
	})

	t.Run("list sorted", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"zoe", "leo", "mia"} {
			if err := s.Save(ctx, sampleProfile(name)); err != nil {
				t.Fatalf("Save(%q) error = %v", name, err)
			}
		}
		if err := s.Save(ctx, sampleProfile("leo")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := s.ListPlayers(ctx)
		if err != nil {
			t.Fatalf("ListPlayers() error = %v", err)
		}
		if want := []string{"leo", "mia", "zoe"}; !reflect.DeepEqual(got, want) {
			t.Errorf("ListPlayers() = %q, want %q", got, want)
		}
	})

	t.Run("quarantine", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, sampleProfile("mia")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		key, err := s.Quarantine(ctx, "mia")
		if err != nil {
			t.Fatalf("Quarantine() error = %v", err)
		}
		if !IsQuarantineKey(key) {
			t.Errorf("Quarantine() key = %q", key)
		}
		if _, err := s.Load(ctx, "mia"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load() after quarantine error = %v, want ErrNotFound", err)
		}
		list, _ := s.ListPlayers(ctx)
		if len(list) != 0 {
			t.Errorf("ListPlayers() after quarantine = %q", list)
		}
		if _, err := s.Quarantine(ctx, "mia"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Quarantine() error = %v, want ErrNotFound", err)
		}

		// a fresh profile can take the name again
		if err := s.Save(ctx, models.NewPlayerProfile("mia", 50, testTime)); err != nil {
			t.Fatalf("Save() after quarantine error = %v", err)
		}
		got, err := s.Load(ctx, "mia")
		if err != nil || got.AgeMonths != 50 {
			t.Errorf("Load() = %+v, %v", got, err)
		}
	})

	t.Run("save rejects unnamed profile", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(ctx, &models.PlayerProfile{})
		if !errors.Is(err, ErrPersistence) {
			t.Errorf("Save() error = %v, want ErrPersistence", err)
		}
	})
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("disk full")

	var err error = &PersistenceError{Name: "mia", Op: "save", Err: cause}
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, cause) {
		t.Errorf("PersistenceError should match ErrPersistence and its cause")
	}
	if errors.Is(err, ErrCorruptData) {
		t.Errorf("PersistenceError should not match ErrCorruptData")
	}

	err = &CorruptDataError{Name: "mia", Reason: "invalid JSON", Err: cause}
	if !errors.Is(err, ErrCorruptData) || !errors.Is(err, cause) {
		t.Errorf("CorruptDataError should match ErrCorruptData and its cause")
	}
	var cde *CorruptDataError
	if !errors.As(err, &cde) || cde.Name != "mia" {
		t.Errorf("errors.As() failed for CorruptDataError")
	}
}
