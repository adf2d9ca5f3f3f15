package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	for n := 1; n <= 4; n++ {
		r, err := ParseRating(n)
		require.NoError(t, err)
		assert.True(t, r.Valid())
	}
	for _, n := range []int{0, 5, -1, 100} {
		_, err := ParseRating(n)
		assert.Error(t, err, "rating %d should be rejected", n)
	}
}

func TestRetrievabilityAtStabilityIsDesiredRetention(t *testing.T) {
	p := DefaultParams()

	// The forgetting curve is calibrated so recall probability hits 0.9
	// exactly when elapsed days equal stability.
	stability := 10.0
	elapsed := time.Duration(stability * 24 * float64(time.Hour))
	assert.InDelta(t, 0.9, p.Retrievability(elapsed, stability), 1e-9)
}

func TestRetrievabilityDecays(t *testing.T) {
	p := DefaultParams()
	prev := 1.0
	for days := 1; days <= 100; days *= 2 {
		r := p.Retrievability(time.Duration(days)*24*time.Hour, 10)
		assert.Less(t, r, prev, "retrievability must fall as time passes")
		prev = r
	}
}

func TestIntervalEqualsStabilityAtDefaultRetention(t *testing.T) {
	p := DefaultParams()
	for _, s := range []float64{1, 5, 30, 365} {
		days := p.Interval(s).Hours() / 24
		assert.InDelta(t, s, days, 1e-6)
	}
}

func TestIntervalBounds(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 24*time.Hour, p.Interval(0.001), "interval floor is one day")
	assert.LessOrEqual(t, p.Interval(1e9), p.MaximumInterval)
}

func TestInitialStabilityOrderedByRating(t *testing.T) {
	p := DefaultParams()
	assert.Less(t, p.initialStability(Again), p.initialStability(Hard))
	assert.Less(t, p.initialStability(Hard), p.initialStability(Good))
	assert.Less(t, p.initialStability(Good), p.initialStability(Easy))
}

func TestInitialDifficultyOrderedByRating(t *testing.T) {
	p := DefaultParams()
	assert.Greater(t, p.initialDifficulty(Again), p.initialDifficulty(Hard))
	assert.Greater(t, p.initialDifficulty(Hard), p.initialDifficulty(Good))
	assert.Greater(t, p.initialDifficulty(Good), p.initialDifficulty(Easy))
	for r := Again; r <= Easy; r++ {
		d := p.initialDifficulty(r)
		assert.GreaterOrEqual(t, d, 1.0)
		assert.LessOrEqual(t, d, 10.0)
	}
}

func TestNextDifficultyMovesInverselyWithRating(t *testing.T) {
	p := DefaultParams()
	d := 5.0
	assert.Greater(t, p.nextDifficulty(d, Again), d)
	assert.Less(t, p.nextDifficulty(d, Easy), d)

	// Clamp holds at the extremes.
	assert.LessOrEqual(t, p.nextDifficulty(10, Again), 10.0)
	assert.GreaterOrEqual(t, p.nextDifficulty(1, Easy), 1.0)
}

func TestStabilityAfterRecallGrowsAndOrdersByRating(t *testing.T) {
	p := DefaultParams()
	d, s := 5.0, 10.0
	retr := p.Retrievability(10*24*time.Hour, s)

	hard := p.stabilityAfterRecall(d, s, retr, Hard)
	good := p.stabilityAfterRecall(d, s, retr, Good)
	easy := p.stabilityAfterRecall(d, s, retr, Easy)

	assert.Greater(t, hard, 0.0)
	assert.Less(t, hard, good, "hard penalty shrinks growth")
	assert.Greater(t, easy, good, "easy bonus boosts growth")
	assert.Greater(t, good, s, "successful recall grows stability")
}

func TestStabilityAfterLapseShrinks(t *testing.T) {
	p := DefaultParams()
	d, s := 5.0, 50.0
	retr := p.Retrievability(50*24*time.Hour, s)

	sf := p.stabilityAfterLapse(d, s, retr)
	assert.Greater(t, sf, 0.0)
	assert.Less(t, sf, s, "lapse must not grow stability")
}

func TestShortTermStabilityOrderedByRating(t *testing.T) {
	p := DefaultParams()
	s := 2.0
	assert.Less(t, p.shortTermStability(s, Again), p.shortTermStability(s, Good))
	assert.Less(t, p.shortTermStability(s, Good), p.shortTermStability(s, Easy))
}
