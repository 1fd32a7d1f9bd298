package tricksim

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Generator produces submissions with random validator scores.
type Generator struct {
	rng    *rand.Rand
	limits Limits
}

// NewGenerator seeds a generator for the given service limits.
func NewGenerator(seed uint64, limits Limits) *Generator {
	return &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		limits: limits,
	}
}

// Submissions returns n submissions, each with a unique skater and
// validatorsEach distinct validators, none of them the skater.
func (g *Generator) Submissions(n, validatorsEach int) []*Submission {
	out := make([]*Submission, n)
	for i := range out {
		skater := "skater-" + uuid.NewString()
		s := &Submission{
			SkaterID:  skater,
			TrickType: g.trick(),
			VideoURL:  fmt.Sprintf("https://videos.tricktrack.local/%s.mp4", uuid.NewString()),
			Scores:    make([]ScoreInput, validatorsEach),
		}
		for j := range s.Scores {
			s.Scores[j] = ScoreInput{
				ValidatorID: fmt.Sprintf("validator-%d-%d", i, j),
				Landing:     g.rng.IntN(g.limits.ScoreLimits.Landing + 1),
				Style:       g.rng.IntN(g.limits.ScoreLimits.Style + 1),
				Difficulty:  g.rng.IntN(g.limits.ScoreLimits.Difficulty + 1),
			}
		}
		out[i] = s
	}
	return out
}

func (g *Generator) trick() string {
	if len(g.limits.Tricks) == 0 {
		return "ollie"
	}
	return g.limits.Tricks[g.rng.IntN(len(g.limits.Tricks))]
}
