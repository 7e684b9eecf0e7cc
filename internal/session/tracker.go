package session

import (
	"errors"
	"fmt"
	"slices"

	"smartkids/internal/models"
)

// DefaultRoundsTarget is the number of correct rounds in a full session
const DefaultRoundsTarget = 10

var (
	ErrInvalidState        = errors.New("invalid session state")
	ErrInvalidRoundsTarget = errors.New("rounds target must be positive")
)

// State is the lifecycle position of a session
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is the transient state of a running session
type Snapshot struct {
	State           State
	RoundsCompleted int
	RoundsTarget    int
	Wins            int
	Attempts        int
}

// Result summarizes a finished session
type Result struct {
	RoundsCompleted int
	RoundsTarget    int
	Wins            int
	Attempts        int
	Accuracy        float64
	Score           float64
	Difficulty      int
	RewardCoins     int
	RewardStars     int
	Outcomes        []models.RoundOutcome
}

// Tracker counts rounds for one play-through of a game.
//
// A wrong answer is recorded but does not advance the round counter: the
// child retries the same round, so a session always ends after
// RoundsTarget correct answers however many attempts that takes.
type Tracker struct {
	state           State
	difficulty      int
	roundsTarget    int
	roundsCompleted int
	wins            int
	outcomes        []models.RoundOutcome
	result          *Result
}

// NewTracker creates a tracker for a session played at difficulty
func NewTracker(difficulty int) *Tracker {
	return &Tracker{difficulty: models.ClampDifficulty(difficulty)}
}

// Start begins counting. It fails if a session is already in progress.
func (t *Tracker) Start(roundsTarget int) error {
	if t.state == InProgress {
		return fmt.Errorf("%w: start called while %s", ErrInvalidState, t.state)
	}
	if roundsTarget <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRoundsTarget, roundsTarget)
	}
	t.state = InProgress
	t.roundsTarget = roundsTarget
	t.roundsCompleted = 0
	t.wins = 0
	t.outcomes = nil
	t.result = nil
	return nil
}

// RecordRound adds one answered question
func (t *Tracker) RecordRound(outcome models.RoundOutcome) error {
	if t.state != InProgress {
		return fmt.Errorf("%w: record_round called while %s", ErrInvalidState, t.state)
	}
	t.outcomes = append(t.outcomes, outcome)
	if outcome.Correct {
		t.wins++
		t.roundsCompleted++
	}
	if t.roundsCompleted == t.roundsTarget {
		t.state = Completed
	}
	return nil
}

// Finish ends the session and returns its result. Calling it on an
// unfinished session stops it early. Repeated calls return the same result.
func (t *Tracker) Finish() (Result, error) {
	switch t.state {
	case NotStarted:
		return Result{}, fmt.Errorf("%w: finish called while %s", ErrInvalidState, t.state)
	case InProgress:
		t.state = Completed
	}
	if t.result == nil {
		r := t.compute()
		t.result = &r
	}
	return t.result.clone(), nil
}

// State returns the current lifecycle state
func (t *Tracker) State() State {
	return t.state
}

// Difficulty returns the level the session is played at
func (t *Tracker) Difficulty() int {
	return t.difficulty
}

// Snapshot returns the current counters
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		State:           t.state,
		RoundsCompleted: t.roundsCompleted,
		RoundsTarget:    t.roundsTarget,
		Wins:            t.wins,
		Attempts:        len(t.outcomes),
	}
}

func (t *Tracker) compute() Result {
	attempts := len(t.outcomes)
	accuracy := 0.0
	if attempts > 0 {
		accuracy = float64(t.wins) / float64(attempts)
	}
	completion := 0.0
	if t.roundsTarget > 0 {
		completion = float64(t.roundsCompleted) / float64(t.roundsTarget)
	}
	score := accuracy * completion
	coins, stars := Rewards(score, t.difficulty)
	return Result{
		RoundsCompleted: t.roundsCompleted,
		RoundsTarget:    t.roundsTarget,
		Wins:            t.wins,
		Attempts:        attempts,
		Accuracy:        accuracy,
		Score:           score,
		Difficulty:      t.difficulty,
		RewardCoins:     coins,
		RewardStars:     stars,
		Outcomes:        slices.Clone(t.outcomes),
	}
}

func (r Result) clone() Result {
	r.Outcomes = slices.Clone(r.Outcomes)
	return r
}
