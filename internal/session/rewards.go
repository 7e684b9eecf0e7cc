package session

import (
	"math"

	"smartkids/internal/models"
)

// CoinsPerSession is the coin reward for a perfect session at difficulty 1
const CoinsPerSession = 10

// Star thresholds on the session score
const (
	oneStarScore   = 0.6
	twoStarScore   = 0.8
	threeStarScore = 0.9
)

// Rewards converts a session score in [0,1] (accuracy weighted by how much of
// the session was completed) and the difficulty into coins and stars.
//
// Coins are rewardValue rounded to a whole number. The value is strictly
// increasing in both inputs. Rounded coins never decrease but can tie: at
// very small scores neighbouring difficulties round to the same count. A score of zero always pays nothing.
func Rewards(score float64, difficulty int) (coins, stars int) {
	if score <= 0 || math.IsNaN(score) {
		return 0, 0
	}
	score = math.Min(score, 1)

	coins = int(math.Round(rewardValue(score, difficulty)))

	switch {
	case score >= threeStarScore:
		stars = 3
	case score >= twoStarScore:
		stars = 2
	case score >= oneStarScore:
		stars = 1
	}
	return coins, stars
}

// rewardValue grows with the square root of score and with 1+ln(difficulty),
// so both raise the reward with diminishing returns
func rewardValue(score float64, difficulty int) float64 {
	d := float64(models.ClampDifficulty(difficulty))
	return CoinsPerSession * math.Sqrt(score) * (1 + math.Log(d))
}
