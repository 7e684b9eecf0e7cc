package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"smartkids/internal/database"
	"smartkids/internal/models"
)

// SQLStore keeps profiles in the players, game_progress and round_outcomes tables
type SQLStore struct {
	db        *database.DB
	retention int
	now       func() time.Time
}

// NewSQLStore creates a store on a migrated database
func NewSQLStore(db *database.DB, retention int) *SQLStore {
	return &SQLStore{db: db, retention: retention, now: time.Now}
}

func (s *SQLStore) Load(ctx context.Context, name string) (*models.PlayerProfile, error) {
	p, err := loadPlayerRow(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if err := loadGameRows(ctx, s.db, p); err != nil {
		return nil, err
	}
	if err := loadOutcomeRows(ctx, s.db, p); err != nil {
		return nil, err
	}
	if !p.Normalize(s.retention) {
		return nil, &CorruptDataError{Name: name, Reason: "unrepairable values"}
	}
	return p, nil
}

func loadPlayerRow(ctx context.Context, q database.DBTX, name string) (*models.PlayerProfile, error) {
	query := `
		SELECT age_months, birth_date, coins, stars, daily_streak, achievements, created_at, last_played_at
		FROM players
		WHERE name = ? AND quarantined = ` + q.GetDialect().Bool(false)

	p := &models.PlayerProfile{Name: name, Games: make(map[models.GameID]*models.GameProgress)}
	var achievements string
	var lastPlayed sql.NullTime
	err := q.QueryRowContext(ctx, query, name).Scan(
		&p.AgeMonths, &p.BirthDate, &p.Coins, &p.Stars, &p.DailyStreak,
		&achievements, &p.CreatedAt, &lastPlayed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %q: %w", name, err)
	}

	if achievements != "" {
		if err := json.Unmarshal([]byte(achievements), &p.Achievements); err != nil {
			return nil, &CorruptDataError{Name: name, Reason: "invalid achievements", Err: err}
		}
		if len(p.Achievements) == 0 {
			p.Achievements = nil
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if lastPlayed.Valid {
		p.LastPlayedAt = lastPlayed.Time.UTC()
	}
	return p, nil
}

func loadGameRows(ctx context.Context, q database.DBTX, p *models.PlayerProfile) error {
	query := `
		SELECT game_id, games_played, games_won, current_difficulty, manual_override
		FROM game_progress
		WHERE player_name = ?`

	rows, err := q.QueryContext(ctx, query, p.Name)
	if err != nil {
		return fmt.Errorf("failed to get game progress for %q: %w", p.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var override sql.NullInt64
		g := &models.GameProgress{}
		if err := rows.Scan(&id, &g.GamesPlayed, &g.GamesWon, &g.CurrentDifficulty, &override); err != nil {
			return fmt.Errorf("failed to scan game progress for %q: %w", p.Name, err)
		}
		if override.Valid {
			g.ManualOverride = models.OverrideLevel(int(override.Int64))
		}
		p.Games[models.GameID(id)] = g
	}
	return rows.Err()
}

func loadOutcomeRows(ctx context.Context, q database.DBTX, p *models.PlayerProfile) error {
	query := `
		SELECT game_id, correct, response_time_ms, difficulty_at_time
		FROM round_outcomes
		WHERE player_name = ?
		ORDER BY game_id, seq`

	rows, err := q.QueryContext(ctx, query, p.Name)
	if err != nil {
		return fmt.Errorf("failed to get round outcomes for %q: %w", p.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var o models.RoundOutcome
		if err := rows.Scan(&id, &o.Correct, &o.ResponseTimeMs, &o.DifficultyAtTime); err != nil {
			return fmt.Errorf("failed to scan round outcome for %q: %w", p.Name, err)
		}
		g, ok := p.Games[models.GameID(id)]
		if !ok {
			return &CorruptDataError{Name: p.Name, Reason: "outcome for unknown game " + id}
		}
		g.History = append(g.History, o)
	}
	return rows.Err()
}

// Save replaces every row belonging to the player inside one transaction
func (s *SQLStore) Save(ctx context.Context, p *models.PlayerProfile) error {
	if p == nil || p.Name == "" {
		return &PersistenceError{Op: "save", Err: errors.New("profile has no name")}
	}
	achievements, err := json.Marshal(p.Achievements)
	if err != nil {
		return &PersistenceError{Name: p.Name, Op: "encode", Err: err}
	}
	if p.Achievements == nil {
		achievements = []byte("[]")
	}

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, q := range []string{
			"DELETE FROM round_outcomes WHERE player_name = ?",
			"DELETE FROM game_progress WHERE player_name = ?",
			"DELETE FROM players WHERE name = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, p.Name); err != nil {
				return err
			}
		}

		var lastPlayed sql.NullTime
		if !p.LastPlayedAt.IsZero() {
			lastPlayed = sql.NullTime{Time: p.LastPlayedAt.UTC(), Valid: true}
		}
		insertPlayer := `
			INSERT INTO players (name, age_months, birth_date, coins, stars, daily_streak,
				achievements, created_at, last_played_at, quarantined)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ` + tx.GetDialect().Bool(false) + `)`
		if _, err := tx.ExecContext(ctx, insertPlayer,
			p.Name, p.AgeMonths, p.BirthDate, p.Coins, p.Stars, p.DailyStreak,
			string(achievements), p.CreatedAt.UTC(), lastPlayed,
		); err != nil {
			return err
		}

		ids := make([]models.GameID, 0, len(p.Games))
		for id, g := range p.Games {
			if g != nil {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)

		for _, id := range ids {
			if err := insertGame(ctx, tx, p.Name, id, p.Games[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Name: p.Name, Op: "save", Err: err}
	}
	return nil
}

func insertGame(ctx context.Context, tx *database.Tx, player string, id models.GameID, g *models.GameProgress) error {
	var override sql.NullInt64
	if level, ok := g.ManualOverride.Get(); ok {
		override = sql.NullInt64{Int64: int64(level), Valid: true}
	}
	insertProgress := `
		INSERT INTO game_progress (player_name, game_id, games_played, games_won, current_difficulty, manual_override)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertProgress,
		player, string(id), g.GamesPlayed, g.GamesWon, g.CurrentDifficulty, override,
	); err != nil {
		return err
	}

	insertOutcome := `
		INSERT INTO round_outcomes (player_name, game_id, seq, correct, response_time_ms, difficulty_at_time)
		VALUES (?, ?, ?, ?, ?, ?)`
	for seq, o := range g.History {
		if _, err := tx.ExecContext(ctx, insertOutcome,
			player, string(id), seq, o.Correct, o.ResponseTimeMs, o.DifficultyAtTime,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) ListPlayers(ctx context.Context) ([]string, error) {
	query := "SELECT name FROM players WHERE quarantined = " + s.db.Dialect.Bool(false)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Quarantine renames the player row and flags it so it no longer loads.
// Child rows follow through ON UPDATE CASCADE.
func (s *SQLStore) Quarantine(ctx context.Context, name string) (string, error) {
	key := quarantineKey(name, s.now())
	query := "UPDATE players SET name = ?, quarantined = " + s.db.Dialect.Bool(true) +
		" WHERE name = ? AND quarantined = " + s.db.Dialect.Bool(false)

	res, err := s.db.ExecContext(ctx, query, key, name)
	if err != nil {
		return "", fmt.Errorf("failed to quarantine profile %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to quarantine profile %q: %w", name, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	log.Warn().Str("player", name).Str("key", key).Msg("Quarantined corrupt profile")
	return key, nil
}
