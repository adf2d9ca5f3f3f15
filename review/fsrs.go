package review

import (
	"fmt"
	"math"
	"time"
)

// Rating is the reviewer's self-assessment of a recall attempt.
type Rating int

const (
	Again Rating = iota + 1
	Hard
	Good
	Easy
)

func (r Rating) Valid() bool { return r >= Again && r <= Easy }

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// ParseRating converts the wire value 1-4.
func ParseRating(n int) (Rating, error) {
	r := Rating(n)
	if !r.Valid() {
		return 0, fmt.Errorf("invalid rating %d, want 1-4", n)
	}
	return r, nil
}

// Forgetting-curve shape constants shared by the FSRS-5 formulas. FACTOR is
// chosen so retrievability is exactly the desired 0.9 when elapsed time
// equals stability.
const (
	decay  = -0.5
	factor = 19.0 / 81.0

	minDifficulty = 1.0
	maxDifficulty = 10.0
	minStability  = 0.01
	maxIntervalD  = 36500.0
)

// defaultWeights are the FSRS-5 published defaults, indexed w0-w18.
var defaultWeights = [19]float64{
	0.40255, 1.18385, 3.173, 15.69105, 7.1949, 0.5345, 1.4604, 0.0046,
	1.54575, 0.1192, 1.01925, 1.9395, 0.11, 0.29605, 2.2698, 0.2315,
	2.9898, 0.51655, 0.6621,
}

// Params configures the scheduler maths. Zero value is not usable; use
// DefaultParams.
type Params struct {
	Weights          [19]float64
	DesiredRetention float64
	// LearningSteps are the intra-day intervals a new card climbs before
	// graduating to long-term review.
	LearningSteps   []time.Duration
	RelearningSteps []time.Duration
	MaximumInterval time.Duration
}

func DefaultParams() Params {
	return Params{
		Weights:          defaultWeights,
		DesiredRetention: 0.9,
		LearningSteps:    []time.Duration{1 * time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
		MaximumInterval:  time.Duration(maxIntervalD) * 24 * time.Hour,
	}
}

// Retrievability is the predicted recall probability after elapsed time
// against a memory of the given stability (in days).
func (p Params) Retrievability(elapsed time.Duration, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	days := elapsed.Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Pow(1+factor*days/stability, decay)
}

// Interval converts a stability into the next review delay such that
// retrievability will have decayed to the desired retention. At retention
// 0.9 the interval equals the stability.
func (p Params) Interval(stability float64) time.Duration {
	days := stability / factor * (math.Pow(p.DesiredRetention, 1/decay) - 1)
	if days < 1 {
		days = 1
	}
	if days > maxIntervalD {
		days = maxIntervalD
	}
	return time.Duration(days * 24 * float64(time.Hour))
}

// initialStability seeds the memory stability from the first rating.
func (p Params) initialStability(r Rating) float64 {
	s := p.Weights[r-1]
	if s < minStability {
		s = minStability
	}
	return s
}

// initialDifficulty seeds difficulty from the first rating, clamped to [1,10].
func (p Params) initialDifficulty(r Rating) float64 {
	d := p.Weights[4] - math.Exp(p.Weights[5]*float64(r-1)) + 1
	return clamp(d, minDifficulty, maxDifficulty)
}

// nextDifficulty applies the linear-damped delta plus mean reversion toward
// the initial difficulty of an Easy first rating.
func (p Params) nextDifficulty(d float64, r Rating) float64 {
	delta := -p.Weights[6] * float64(r-3)
	dp := d + delta*(maxDifficulty-d)/9
	d0Easy := p.initialDifficulty(Easy)
	dpp := p.Weights[7]*d0Easy + (1-p.Weights[7])*dp
	return clamp(dpp, minDifficulty, maxDifficulty)
}

// stabilityAfterRecall grows stability after a successful review. Growth is
// larger for easier material, lower current stability, and lower
// retrievability at review time.
func (p Params) stabilityAfterRecall(d, s, retr float64, r Rating) float64 {
	hardPenalty := 1.0
	if r == Hard {
		hardPenalty = p.Weights[15]
	}
	easyBonus := 1.0
	if r == Easy {
		easyBonus = p.Weights[16]
	}
	grow := math.Exp(p.Weights[8]) *
		(11 - d) *
		math.Pow(s, -p.Weights[9]) *
		(math.Exp(p.Weights[10]*(1-retr)) - 1) *
		hardPenalty * easyBonus
	return s * (grow + 1)
}

// stabilityAfterLapse shrinks stability after a failed review. The result
// never exceeds the pre-lapse stability.
func (p Params) stabilityAfterLapse(d, s, retr float64) float64 {
	sf := p.Weights[11] *
		math.Pow(d, -p.Weights[12]) *
		(math.Pow(s+1, p.Weights[13]) - 1) *
		math.Exp(p.Weights[14]*(1-retr))
	if sf > s {
		sf = s
	}
	if sf < minStability {
		sf = minStability
	}
	return sf
}

// shortTermStability adjusts stability for same-day reviews, where the
// forgetting-curve model does not apply yet.
func (p Params) shortTermStability(s float64, r Rating) float64 {
	sn := s * math.Exp(p.Weights[17]*(float64(r-3)+p.Weights[18]))
	if sn < minStability {
		sn = minStability
	}
	return sn
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
