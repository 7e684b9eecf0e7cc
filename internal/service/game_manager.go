package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"smartkids/internal/difficulty"
	"smartkids/internal/models"
	"smartkids/internal/session"
	"smartkids/internal/store"
	"smartkids/internal/utils"
)

var (
	ErrNoProfile      = errors.New("no profile loaded")
	ErrUnknownSession = errors.New("unknown or finished session")
	ErrUnsavedChanges = errors.New("profile has unsaved changes")
)

// Achievement ids
const (
	AchievementFirstSession   = "first_session"
	AchievementFirstWin       = "first_win"
	AchievementPerfectSession = "perfect_session"
	AchievementStreak7        = "streak_7"
	AchievementMaxDifficulty  = "max_difficulty"
)

// DefaultPassThreshold is the session accuracy that counts as a win
const DefaultPassThreshold = 0.6

// recentResultsLimit bounds GameStats.RecentResults
const recentResultsLimit = 10

// Options tune session scoring
type Options struct {
	RoundsPerSession int
	PassThreshold    float64
	HistoryRetention int
}

// SessionHandle identifies one running session
type SessionHandle struct {
	ID     uuid.UUID
	GameID models.GameID
}

// GameStats summarizes a player's record in one game
type GameStats struct {
	GameID            models.GameID
	GamesPlayed       int
	GamesWon          int
	WinRate           float64
	CurrentDifficulty int
	Override          models.Override
	RecentResults     []models.RoundOutcome
}

type activeSession struct {
	handle  SessionHandle
	tracker *session.Tracker
}

// GameManager is the single entry point the shell and mini-games use. It
// holds the current player's profile, runs at most one session at a time
// and persists the profile after every session.
type GameManager struct {
	store store.ProgressStore
	opts  Options
	now   func() time.Time

	mu          sync.Mutex
	profile     *models.PlayerProfile
	active      *activeSession
	unsaved     bool
	quarantined string
}

// NewGameManager creates a manager over store. Zero options take defaults.
func NewGameManager(s store.ProgressStore, opts Options) *GameManager {
	if opts.RoundsPerSession <= 0 {
		opts.RoundsPerSession = session.DefaultRoundsTarget
	}
	if opts.PassThreshold <= 0 {
		opts.PassThreshold = DefaultPassThreshold
	}
	if opts.HistoryRetention <= 0 {
		opts.HistoryRetention = models.DefaultHistoryRetention
	}
	return &GameManager{store: s, opts: opts, now: time.Now}
}

// SetClock replaces the time source
func (m *GameManager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// OpenProfile loads the named player, creating a fresh profile if none
// exists. A corrupt record is quarantined first so no data is lost; the
// returned bool reports whether a new profile was created.
func (m *GameManager) OpenProfile(ctx context.Context, name string, ageMonths int) (bool, error) {
	err := m.LoadProfile(ctx, name)
	if err == nil {
		return false, nil
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorruptData):
		key, qerr := m.store.Quarantine(ctx, name)
		if qerr != nil {
			return false, fmt.Errorf("failed to quarantine corrupt profile: %w", qerr)
		}
		m.mu.Lock()
		m.quarantined = key
		m.mu.Unlock()
		log.Warn().Err(err).Str("player", name).Str("moved_to", key).Msg("Starting fresh profile")
	default:
		return false, err
	}

	if err := m.CreateProfile(ctx, name, ageMonths); err != nil {
		return false, err
	}
	return true, nil
}

// LoadProfile makes an existing player current
func (m *GameManager) LoadProfile(ctx context.Context, name string) error {
	p, err := m.store.Load(ctx, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return fmt.Errorf("%w: cannot switch player during a session", session.ErrInvalidState)
	}
	m.profile = p
	m.unsaved = false
	log.Info().Str("player", name).Msg("Profile loaded")
	return nil
}

// ReloadProfile replaces the current player's profile with the stored copy.
// It refuses while a session is running or while a failed save is waiting
// for RetrySave, so an outside edit never overwrites unsaved progress.
func (m *GameManager) ReloadProfile(ctx context.Context) error {
	m.mu.Lock()
	if m.profile == nil {
		m.mu.Unlock()
		return ErrNoProfile
	}
	name := m.profile.Name
	m.mu.Unlock()

	p, err := m.store.Load(ctx, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.profile == nil || m.profile.Name != name:
		return fmt.Errorf("%w: player changed during reload", session.ErrInvalidState)
	case m.active != nil:
		return fmt.Errorf("%w: cannot reload during a session", session.ErrInvalidState)
	case m.unsaved:
		return ErrUnsavedChanges
	}
	m.profile = p
	log.Info().Str("player", name).Msg("Profile reloaded")
	return nil
}

// CreateProfile registers a new player and saves it immediately
func (m *GameManager) CreateProfile(ctx context.Context, name string, ageMonths int) error {
	if err := utils.ValidatePlayerName(name); err != nil {
		return err
	}
	if err := utils.ValidateAgeMonths(ageMonths); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return fmt.Errorf("%w: cannot switch player during a session", session.ErrInvalidState)
	}

	p := models.NewPlayerProfile(name, ageMonths, m.now().UTC())
	m.profile = p
	m.unsaved = true
	if err := m.saveLocked(ctx); err != nil {
		return err
	}
	log.Info().Str("player", name).Int("age_months", ageMonths).Msg("Profile created")
	return nil
}

// ListPlayers returns the names offered on the player selection screen
func (m *GameManager) ListPlayers(ctx context.Context) ([]string, error) {
	return m.store.ListPlayers(ctx)
}

// Profile returns a copy of the current profile
func (m *GameManager) Profile() (*models.PlayerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil, ErrNoProfile
	}
	return m.profile.Clone(), nil
}

// QuarantinedKey returns where the last corrupt record was moved, if any
func (m *GameManager) QuarantinedKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quarantined
}

// SetAgeMonths updates the age used for the base difficulty
func (m *GameManager) SetAgeMonths(ctx context.Context, months int) error {
	if err := utils.ValidateAgeMonths(months); err != nil {
		return err
	}
	return m.updateProfile(ctx, func(p *models.PlayerProfile) {
		p.AgeMonths = months
	})
}

// SetBirthDate stores a YYYY-MM-DD birth date; age is then derived from it.
// An empty date clears it.
func (m *GameManager) SetBirthDate(ctx context.Context, date string) error {
	m.mu.Lock()
	now := m.now()
	m.mu.Unlock()
	if date != "" {
		if err := utils.ValidateBirthDate(date, now); err != nil {
			return err
		}
	}
	return m.updateProfile(ctx, func(p *models.PlayerProfile) {
		p.BirthDate = date
		p.AgeMonths = p.AgeMonthsAt(now)
	})
}

func (m *GameManager) updateProfile(ctx context.Context, fn func(p *models.PlayerProfile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return ErrNoProfile
	}
	fn(m.profile)
	m.unsaved = true
	return m.saveLocked(ctx)
}

// BeginSession starts a session of gameID at the player's effective
// difficulty. Only one session may run at a time.
func (m *GameManager) BeginSession(ctx context.Context, gameID models.GameID) (int, SessionHandle, error) {
	if !gameID.Valid() {
		return 0, SessionHandle{}, fmt.Errorf("%w: %q", models.ErrUnknownGame, gameID)
	}
	if err := ctx.Err(); err != nil {
		return 0, SessionHandle{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return 0, SessionHandle{}, ErrNoProfile
	}
	if m.active != nil {
		return 0, SessionHandle{}, fmt.Errorf("%w: session %s still running", session.ErrInvalidState, m.active.handle.ID)
	}

	level := m.effectiveLocked(gameID)
	tracker := session.NewTracker(level)
	if err := tracker.Start(m.opts.RoundsPerSession); err != nil {
		return 0, SessionHandle{}, err
	}

	handle := SessionHandle{ID: uuid.New(), GameID: gameID}
	m.active = &activeSession{handle: handle, tracker: tracker}
	log.Info().Str("player", m.profile.Name).Str("game", string(gameID)).
		Int("difficulty", level).Str("session", handle.ID.String()).Msg("Session started")
	return level, handle, nil
}

// ReportRound records one answer. Nothing is persisted until EndSession.
func (m *GameManager) ReportRound(handle SessionHandle, outcome models.RoundOutcome) (session.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.sessionLocked(handle)
	if err != nil {
		return session.Snapshot{}, err
	}

	if outcome.DifficultyAtTime == 0 {
		outcome.DifficultyAtTime = a.tracker.Difficulty()
	}
	outcome.DifficultyAtTime = models.ClampDifficulty(outcome.DifficultyAtTime)
	outcome.ResponseTimeMs = max(outcome.ResponseTimeMs, 0)

	if err := a.tracker.RecordRound(outcome); err != nil {
		return a.tracker.Snapshot(), err
	}
	return a.tracker.Snapshot(), nil
}

// EndSession finishes the session, applies its result to the profile and
// saves it. The handle cannot be used again. If the save fails the result
// is still returned, together with a *store.PersistenceError; RetrySave
// can write the updated profile later.
func (m *GameManager) EndSession(ctx context.Context, handle SessionHandle) (session.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.sessionLocked(handle)
	if err != nil {
		return session.Result{}, err
	}

	res, err := a.tracker.Finish()
	if err != nil {
		return session.Result{}, err
	}
	m.active = nil

	m.applyResultLocked(handle.GameID, res)
	m.unsaved = true
	if err := m.saveLocked(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// AbandonSession drops a session without recording anything. It is for a
// session whose game could not be started; interrupted play goes through
// EndSession.
func (m *GameManager) AbandonSession(handle SessionHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.sessionLocked(handle); err != nil {
		return err
	}
	m.active = nil
	return nil
}

func (m *GameManager) sessionLocked(handle SessionHandle) (*activeSession, error) {
	if m.active == nil || m.active.handle.ID != handle.ID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, handle.ID)
	}
	return m.active, nil
}

func (m *GameManager) applyResultLocked(gameID models.GameID, res session.Result) {
	p := m.profile
	now := m.now()
	g := p.Game(gameID, res.Difficulty)

	g.GamesPlayed++
	// an early quit is scored on the rounds it completed
	won := res.Attempts > 0 && res.Score >= m.opts.PassThreshold
	if won {
		g.GamesWon++
	}
	g.AppendHistory(m.opts.HistoryRetention, res.Outcomes...)

	previous := g.CurrentDifficulty
	g.CurrentDifficulty = difficulty.Effective(p.AgeMonthsAt(now), g.History, g.ManualOverride)
	if g.CurrentDifficulty != previous {
		log.Info().Str("player", p.Name).Str("game", string(gameID)).
			Int("from", previous).Int("to", g.CurrentDifficulty).Msg("Difficulty changed")
	}

	p.Coins += res.RewardCoins
	p.Stars += res.RewardStars
	p.DailyStreak = nextStreak(p.DailyStreak, p.LastPlayedAt, now)
	p.LastPlayedAt = now.UTC()
	if p.BirthDate != "" {
		p.AgeMonths = p.AgeMonthsAt(now)
	}

	unlocked := []string{AchievementFirstSession}
	if won {
		unlocked = append(unlocked, AchievementFirstWin)
	}
	if res.RoundsCompleted == res.RoundsTarget && res.Attempts == res.Wins && res.Wins > 0 {
		unlocked = append(unlocked, AchievementPerfectSession)
	}
	if p.DailyStreak >= 7 {
		unlocked = append(unlocked, AchievementStreak7)
	}
	if g.CurrentDifficulty == models.MaxDifficulty {
		unlocked = append(unlocked, AchievementMaxDifficulty)
	}
	for _, id := range unlocked {
		if p.UnlockAchievement(id) {
			log.Info().Str("player", p.Name).Str("achievement", id).Msg("Achievement unlocked")
		}
	}

	log.Info().Str("player", p.Name).Str("game", string(gameID)).
		Int("rounds", res.RoundsCompleted).Int("attempts", res.Attempts).
		Float64("accuracy", res.Accuracy).Bool("won", won).
		Int("coins", res.RewardCoins).Int("stars", res.RewardStars).Msg("Session ended")
}

// nextStreak counts consecutive calendar days with at least one session
func nextStreak(streak int, last, now time.Time) int {
	if last.IsZero() {
		return 1
	}
	lastDay := dayOf(last.In(now.Location()))
	today := dayOf(now)
	switch {
	case today.Equal(lastDay):
		return max(streak, 1)
	case today.Equal(lastDay.AddDate(0, 0, 1)):
		return streak + 1
	default:
		return 1
	}
}

func dayOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// SetManualOverride pins gameID to a level, or clears the pin with
// models.NoOverride, then saves.
func (m *GameManager) SetManualOverride(ctx context.Context, gameID models.GameID, override models.Override) error {
	if !gameID.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownGame, gameID)
	}
	if err := override.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return ErrNoProfile
	}
	p := m.profile
	g := p.Game(gameID, difficulty.Base(p.AgeMonthsAt(m.now())))
	g.ManualOverride = override
	g.CurrentDifficulty = difficulty.Effective(p.AgeMonthsAt(m.now()), g.History, override)
	m.unsaved = true
	log.Info().Str("player", p.Name).Str("game", string(gameID)).Str("override", override.String()).Msg("Difficulty override set")
	return m.saveLocked(ctx)
}

// EffectiveDifficulty returns the level the next session of gameID would use
func (m *GameManager) EffectiveDifficulty(gameID models.GameID) (int, error) {
	if !gameID.Valid() {
		return 0, fmt.Errorf("%w: %q", models.ErrUnknownGame, gameID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return 0, ErrNoProfile
	}
	return m.effectiveLocked(gameID), nil
}

func (m *GameManager) effectiveLocked(gameID models.GameID) int {
	age := m.profile.AgeMonthsAt(m.now())
	g, ok := m.profile.Games[gameID]
	if !ok || g == nil {
		return difficulty.Effective(age, nil, models.NoOverride)
	}
	return difficulty.Effective(age, g.History, g.ManualOverride)
}

// GameStats returns the player's record in gameID
func (m *GameManager) GameStats(gameID models.GameID) (GameStats, error) {
	if !gameID.Valid() {
		return GameStats{}, fmt.Errorf("%w: %q", models.ErrUnknownGame, gameID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return GameStats{}, ErrNoProfile
	}

	stats := GameStats{GameID: gameID, CurrentDifficulty: m.effectiveLocked(gameID)}
	if g, ok := m.profile.Games[gameID]; ok && g != nil {
		stats.GamesPlayed = g.GamesPlayed
		stats.GamesWon = g.GamesWon
		stats.WinRate = g.WinRate()
		stats.Override = g.ManualOverride
		start := max(len(g.History)-recentResultsLimit, 0)
		stats.RecentResults = slices.Clone(g.History[start:])
	}
	return stats, nil
}

// Unsaved reports whether the profile has changes a failed save left behind
func (m *GameManager) Unsaved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsaved
}

// RetrySave writes the current profile again after a failed save
func (m *GameManager) RetrySave(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return ErrNoProfile
	}
	return m.saveLocked(ctx)
}

func (m *GameManager) saveLocked(ctx context.Context) error {
	if err := m.store.Save(ctx, m.profile.Clone()); err != nil {
		log.Error().Err(err).Str("player", m.profile.Name).Msg("Failed to save profile")
		var pe *store.PersistenceError
		if !errors.As(err, &pe) {
			err = &store.PersistenceError{Name: m.profile.Name, Op: "save", Err: err}
		}
		return err
	}
	m.unsaved = false
	return nil
}
