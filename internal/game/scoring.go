package game

import (
	"math"
	"time"
)

// Score awards points for a correct answer based on how much of the round was
// left when it arrived: 100 base points plus up to 100 speed bonus. Incorrect
// or timed-out answers always score zero. Callers clamp timeLeft to
// [0, roundDuration] before calling.
func Score(correct bool, timeLeft, roundDuration time.Duration) int {
	if !correct || roundDuration <= 0 {
		return 0
	}
	fraction := float64(timeLeft) / float64(roundDuration)
	return 100 + int(math.Floor(100*fraction))
}
