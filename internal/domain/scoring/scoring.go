// Package scoring aggregates validator judgments into a final score and
// converts final scores into token rewards.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
)

// Default scoring configuration constants.
const (
	DefaultMinValidators   = 3
	defaultTrickMultiplier = 1.0
)

// Sentinel kinds for scoring errors.
var (
	ErrNoScores          = errors.New("no scores to aggregate")
	ErrNotEnoughScores   = errors.New("not enough scores to aggregate")
	ErrInvalidMultiplier = errors.New("invalid trick multiplier")
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMinValidators sets how many distinct validators must score before
// aggregation is eligible. Values below one are ignored.
func WithMinValidators(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.minValidators = n
		}
	}
}

// Aggregator decides eligibility and computes final scores.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	minValidators int
}

// NewAggregator creates an aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{minValidators: DefaultMinValidators}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MinValidators returns the configured threshold.
func (a *Aggregator) MinValidators() int {
	return a.minValidators
}

// Eligible reports whether count scores are enough to aggregate.
func (a *Aggregator) Eligible(count int) bool {
	return count >= a.minValidators
}

// FinalScore returns the mean of every score's total, rounded half-up.
// The result does not depend on the order of scores.
func (a *Aggregator) FinalScore(scores []model.Score) (int, error) {
	if len(scores) == 0 {
		return 0, ErrNoScores
	}
	if !a.Eligible(len(scores)) {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughScores, len(scores), a.minValidators)
	}
	sum := 0
	for _, s := range scores {
		sum += s.Total()
	}
	n := len(scores)
	// floor(sum/n + 1/2) in integers; totals are never negative.
	return (2*sum + n) / (2 * n), nil
}

// Rewarder converts a final score into a token amount.
type Rewarder interface {
	Reward(finalScore int, trick types.TrickType) int
}

// RewardFunc adapts a plain function to Rewarder.
type RewardFunc func(finalScore int, trick types.TrickType) int

// Reward calls f.
func (f RewardFunc) Reward(finalScore int, trick types.TrickType) int {
	return f(finalScore, trick)
}

// FlatReward awards one token per final-score point regardless of trick.
var FlatReward Rewarder = RewardFunc(func(finalScore int, _ types.TrickType) int {
	return finalScore
})

// WeightedReward scales the final score by a per-trick multiplier.
type WeightedReward struct {
	multipliers       map[types.TrickType]float64
	defaultMultiplier float64
}

// NewWeightedReward builds a WeightedReward from trick-name keyed multipliers.
// Unknown trick names and negative multipliers are rejected.
func NewWeightedReward(multipliers map[string]float64, defaultMultiplier float64) (*WeightedReward, error) {
	w := &WeightedReward{
		multipliers:       make(map[types.TrickType]float64, len(multipliers)),
		defaultMultiplier: defaultTrickMultiplier,
	}
	if defaultMultiplier < 0 {
		return nil, fmt.Errorf("%w: default %v", ErrInvalidMultiplier, defaultMultiplier)
	}
	if defaultMultiplier > 0 {
		w.defaultMultiplier = defaultMultiplier
	}
	for name, m := range multipliers {
		trick, ok := types.ParseTrickType(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown trick %q", ErrInvalidMultiplier, name)
		}
		if m < 0 {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidMultiplier, name, m)
		}
		w.multipliers[trick] = m
	}
	return w, nil
}

// Reward returns finalScore times the trick's multiplier, rounded half-up.
func (w *WeightedReward) Reward(finalScore int, trick types.TrickType) int {
	m, ok := w.multipliers[trick]
	if !ok {
		m = w.defaultMultiplier
	}
	return int(math.Floor(float64(finalScore)*m + 0.5))
}

// Lowest final score that earns each badge tier.
const (
	BronzeThreshold = 50
	SilverThreshold = 75
	GoldThreshold   = 90
)

// BadgeFor returns the tier a final score earns. Scores below
// BronzeThreshold earn nothing.
func BadgeFor(finalScore int) (model.BadgeTier, bool) {
	switch {
	case finalScore >= GoldThreshold:
		return model.BadgeGold, true
	case finalScore >= SilverThreshold:
		return model.BadgeSilver, true
	case finalScore >= BronzeThreshold:
		return model.BadgeBronze, true
	}
	return "", false
}
