package tricksim

import (
	"fmt"

	"github.com/tricktrack/tricktrack/internal/domain/scoring"
	"github.com/tricktrack/tricktrack/internal/domain/types"
)

// verify appends a problem to o for every way the record deviates from a
// single clean completion.
func verify(o *Outcome, minValidators, extra int, agg *scoring.Aggregator) {
	if o.ValidationID == "" {
		return
	}
	rec := o.Final
	if rec.Status != types.StatusCompleted {
		o.Problems = append(o.Problems, fmt.Sprintf("status %s, want %s", rec.Status, types.StatusCompleted))
		return
	}
	if o.Completions != 1 {
		o.Problems = append(o.Problems, fmt.Sprintf("completed %d times", o.Completions))
	}
	if o.Accepted != minValidators {
		o.Problems = append(o.Problems, fmt.Sprintf("%d scores accepted, want %d", o.Accepted, minValidators))
	}
	if o.Rejected != extra {
		o.Problems = append(o.Problems, fmt.Sprintf("%d scores rejected, want %d", o.Rejected, extra))
	}
	if len(rec.Scores) != minValidators {
		o.Problems = append(o.Problems, fmt.Sprintf("record holds %d scores, want %d", len(rec.Scores), minValidators))
	}

	want, err := agg.FinalScore(rec.Scores)
	switch {
	case err != nil:
		o.Problems = append(o.Problems, "recompute final score: "+err.Error())
	case rec.FinalScore == nil:
		o.Problems = append(o.Problems, "final score missing")
	case *rec.FinalScore != want:
		o.Problems = append(o.Problems, fmt.Sprintf("final score %d, want %d", *rec.FinalScore, want))
	}
	if rec.TokensEarned == nil {
		o.Problems = append(o.Problems, "tokens earned missing")
	}
	if rec.CompletedAt == nil {
		o.Problems = append(o.Problems, "completed at missing")
	}
}
