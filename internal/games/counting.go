package games

import (
	"fmt"
	"strconv"
	"strings"

	"smartkids/internal/models"
)

type countingLevel struct {
	min, max int
}

var countingLevels = map[int]countingLevel{
	1:  {1, 3},
	2:  {1, 5},
	3:  {2, 7},
	4:  {3, 9},
	5:  {4, 12},
	6:  {5, 15},
	7:  {6, 18},
	8:  {8, 20},
	9:  {10, 25},
	10: {12, 30},
}

type countingObject struct {
	symbol string
	name   string
}

var countingObjects = []countingObject{
	{"🍎", "苹果"},
	{"⭐", "星星"},
	{"❤️", "爱心"},
	{"🌸", "花朵"},
}

// Counting shows a group of objects and asks how many there are. A wrong
// answer keeps the same group on screen for another try.
type Counting struct {
	roundClock
	opts   Options
	params countingLevel
	count  int
	object countingObject
}

// NewCounting creates a counting game at level
func NewCounting(level int, opts Options) *Counting {
	opts = opts.withDefaults()
	params, ok := countingLevels[level]
	if !ok {
		params = countingLevels[5]
	}
	return &Counting{
		roundClock: roundClock{now: opts.Now, level: level},
		opts:       opts,
		params:     params,
	}
}

func (g *Counting) ID() models.GameID { return models.Counting }

// Advance lays out a new group of objects
func (g *Counting) Advance() {
	g.count = intBetween(g.opts.Rand, g.params.min, g.params.max)
	g.object = countingObjects[g.opts.Rand.IntN(len(countingObjects))]
	g.begin()
}

// Answer is the number of objects in the current round
func (g *Counting) Answer() int {
	return g.count
}

func (g *Counting) CurrentVisualState() VisualState {
	objects := make([]string, g.count)
	for i := range objects {
		objects[i] = g.object.symbol
	}
	vs := VisualState{
		Round:    g.round,
		Prompt:   "数一数，一共有几个？",
		Speech:   fmt.Sprintf("第%d题，数一数，有几个%s？", g.round, g.object.name),
		Objects:  objects,
		Feedback: g.feedback,
	}
	switch g.feedback {
	case FeedbackCorrect:
		vs.Speech = fmt.Sprintf("答对了！是%d个！", g.count)
	case FeedbackWrong:
		vs.Speech = "再数数看！"
	}
	return vs
}

func (g *Counting) HandleInput(input string) error {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidInput, input)
	}
	g.answer(n == g.count)
	return nil
}
