// Package games holds the terminal mini-games and the loop that runs a
// session of any of them against the GameManager.
package games

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"smartkids/internal/models"
)

var (
	ErrInvalidInput    = errors.New("input is not an answer")
	ErrUnsupportedGame = errors.New("game has no terminal version")
)

// Feedback is the reaction to the last answer
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackCorrect
	FeedbackWrong
)

// VisualState is everything the shell needs to draw the current round
type VisualState struct {
	Round    int
	Prompt   string
	Speech   string
	Objects  []string
	Options  []int
	Feedback Feedback
}

// Game is the capability set every mini-game provides. Advance prepares a
// new round, HandleInput checks one answer and ReportOutcome hands the
// resulting outcome to the caller exactly once.
type Game interface {
	ID() models.GameID
	Advance()
	CurrentVisualState() VisualState
	HandleInput(input string) error
	ReportOutcome() (models.RoundOutcome, bool)
}

// Options seed the randomness and timing of a game
type Options struct {
	Rand *rand.Rand
	Now  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Playable lists the games that have a terminal version, in menu order
func Playable() []models.GameID {
	return []models.GameID{models.Counting, models.SimpleMath}
}

// New creates the game id played at level
func New(id models.GameID, level int, opts Options) (Game, error) {
	opts = opts.withDefaults()
	level = models.ClampDifficulty(level)
	switch id {
	case models.Counting:
		return NewCounting(level, opts), nil
	case models.SimpleMath:
		return NewSimpleMath(level, opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGame, id)
	}
}

// roundClock stamps answers with the difficulty and the time taken since
// the round was shown or last attempted
type roundClock struct {
	now      func() time.Time
	level    int
	round    int
	started  time.Time
	pending  *models.RoundOutcome
	feedback Feedback
}

func (c *roundClock) begin() {
	c.round++
	c.started = c.now()
	c.pending = nil
	c.feedback = FeedbackNone
}

func (c *roundClock) answer(correct bool) {
	at := c.now()
	c.pending = &models.RoundOutcome{
		Correct:          correct,
		ResponseTimeMs:   int(max(at.Sub(c.started), 0) / time.Millisecond),
		DifficultyAtTime: c.level,
	}
	c.started = at
	if correct {
		c.feedback = FeedbackCorrect
	} else {
		c.feedback = FeedbackWrong
	}
}

func (c *roundClock) ReportOutcome() (models.RoundOutcome, bool) {
	if c.pending == nil {
		return models.RoundOutcome{}, false
	}
	o := *c.pending
	c.pending = nil
	return o, true
}

// intBetween returns a uniform int in [lo, hi]
func intBetween(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
