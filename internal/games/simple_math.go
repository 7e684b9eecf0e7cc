package games

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"smartkids/internal/models"
)

type mathLevel struct {
	max         int
	subtraction bool
	negative    bool
}

var mathLevels = map[int]mathLevel{
	1:  {max: 5},
	2:  {max: 8},
	3:  {max: 10},
	4:  {max: 10, subtraction: true},
	5:  {max: 15, subtraction: true},
	6:  {max: 20, subtraction: true},
	7:  {max: 30, subtraction: true, negative: true},
	8:  {max: 50, subtraction: true, negative: true},
	9:  {max: 80, subtraction: true, negative: true},
	10: {max: 100, subtraction: true, negative: true},
}

// optionCount is how many answers are offered per question
const optionCount = 4

// optionSpread bounds how far a wrong option may be from the answer
const optionSpread = 3

// SimpleMath asks addition and subtraction questions with four answer options
type SimpleMath struct {
	roundClock
	opts    Options
	params  mathLevel
	a, b    int
	op      byte
	result  int
	options []int
}

// NewSimpleMath creates an arithmetic game at level
func NewSimpleMath(level int, opts Options) *SimpleMath {
	opts = opts.withDefaults()
	params, ok := mathLevels[level]
	if !ok {
		params = mathLevels[5]
	}
	return &SimpleMath{
		roundClock: roundClock{now: opts.Now, level: level},
		opts:       opts,
		params:     params,
	}
}

func (g *SimpleMath) ID() models.GameID { return models.SimpleMath }

// Advance generates a new question and its options
func (g *SimpleMath) Advance() {
	r := g.opts.Rand
	limit := g.params.max
	g.op = '+'
	if g.params.subtraction && r.IntN(2) == 1 {
		g.op = '-'
	}

	switch {
	case g.op == '+':
		g.a = intBetween(r, 0, limit)
		g.b = intBetween(r, 0, limit-g.a)
		g.result = g.a + g.b
	case g.params.negative:
		g.a = intBetween(r, 0, limit)
		g.b = intBetween(r, 0, limit)
		g.result = g.a - g.b
	default:
		g.a = intBetween(r, 0, limit)
		g.b = intBetween(r, 0, g.a)
		g.result = g.a - g.b
	}
	g.options = g.makeOptions()
	g.begin()
}

func (g *SimpleMath) makeOptions() []int {
	var candidates []int
	for off := -optionSpread; off <= optionSpread; off++ {
		v := g.result + off
		if off == 0 || (v < 0 && !g.params.negative) {
			continue
		}
		candidates = append(candidates, v)
	}
	g.opts.Rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	options := append([]int{g.result}, candidates[:optionCount-1]...)
	g.opts.Rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// Question returns the operands and operator of the current round
func (g *SimpleMath) Question() (a int, op byte, b int) {
	return g.a, g.op, g.b
}

// Answer is the result of the current question
func (g *SimpleMath) Answer() int {
	return g.result
}

func (g *SimpleMath) CurrentVisualState() VisualState {
	spoken := "加"
	if g.op == '-' {
		spoken = "减"
	}
	vs := VisualState{
		Round:    g.round,
		Prompt:   fmt.Sprintf("%d %c %d = ?", g.a, g.op, g.b),
		Speech:   fmt.Sprintf("第%d题，%d%s%d等于几？", g.round, g.a, spoken, g.b),
		Options:  slices.Clone(g.options),
		Feedback: g.feedback,
	}
	switch g.feedback {
	case FeedbackCorrect:
		vs.Speech = "答对了！真棒！"
	case FeedbackWrong:
		vs.Speech = "再想想哦！"
	}
	return vs
}

// HandleInput accepts the number itself or the option letter (a-d)
func (g *SimpleMath) HandleInput(input string) error {
	input = strings.ToLower(strings.TrimSpace(input))
	if len(input) == 1 && input[0] >= 'a' && int(input[0]-'a') < len(g.options) {
		g.answer(g.options[input[0]-'a'] == g.result)
		return nil
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidInput, input)
	}
	g.answer(n == g.result)
	return nil
}
