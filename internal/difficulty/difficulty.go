// Package difficulty computes the level a mini-game session is played at.
//
// Everything here is a pure function of its arguments: the same age,
// history and override always give the same level.
package difficulty

import (
	"math"

	"smartkids/internal/models"
)

const (
	// Window is how many of the most recent outcomes are considered
	Window = 10
	// MinSamples is the fewest outcomes needed before history adjusts the level
	MinSamples = 5
	// MonthsPerLevel maps age to the base level
	MonthsPerLevel = 6

	fastAnswerMs = 8000
	slowAnswerMs = 15000
)

// Effective returns the difficulty a session should use. A set override
// wins; otherwise the age-based level is shifted by recent performance.
func Effective(ageMonths int, history []models.RoundOutcome, override models.Override) int {
	if level, ok := override.Get(); ok {
		return models.ClampDifficulty(level)
	}
	return models.ClampDifficulty(Base(ageMonths) + PerformanceFactor(history))
}

// Base returns clamp(round(ageMonths/6), 1, 10)
func Base(ageMonths int) int {
	if ageMonths < 0 {
		ageMonths = 0
	}
	level := int(math.Round(float64(ageMonths) / MonthsPerLevel))
	return models.ClampDifficulty(level)
}

// PerformanceFactor returns an adjustment in [-2, 2] from the last Window
// outcomes. Each outcome earns credit in [0, 1] (see Credit); the mean
// credit is bucketed so that changing a single outcome moves the result by
// at most one level.
func PerformanceFactor(history []models.RoundOutcome) int {
	recent := history
	if len(recent) > Window {
		recent = recent[len(recent)-Window:]
	}
	if len(recent) < MinSamples {
		return 0
	}

	total := 0.0
	for _, o := range recent {
		total += Credit(o)
	}
	return level(total / float64(len(recent)))
}

// Credit scores one outcome: wrong answers earn nothing and slow correct
// answers earn less than quick ones.
func Credit(o models.RoundOutcome) float64 {
	switch {
	case !o.Correct:
		return 0
	case o.ResponseTimeMs <= fastAnswerMs:
		return 1
	case o.ResponseTimeMs <= slowAnswerMs:
		return 0.75
	default:
		return 0.5
	}
}

// level buckets mean credit. The +1 and -1 bands are 0.2 wide, matching the
// largest shift one outcome can cause with MinSamples outcomes.
func level(mean float64) int {
	const eps = 1e-9
	switch {
	case mean >= 1-eps:
		return 2
	case mean >= 0.8-eps:
		return 1
	case mean >= 0.5-eps:
		return 0
	case mean >= 0.3-eps:
		return -1
	default:
		return -2
	}
}
