// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/types"
)

// Score is one validator's judgment of a submission.
type Score struct {
	ValidatorID string    `json:"validatorId"`
	Landing     int       `json:"landing"`    // 0-50
	Style       int       `json:"style"`      // 0-30
	Difficulty  int       `json:"difficulty"` // 0-20
	Feedback    string    `json:"feedback,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Total returns the combined sub-scores, 0-100 for in-range scores.
func (s Score) Total() int {
	return s.Landing + s.Style + s.Difficulty
}

// Validation is one skate-trick submission under review.
type Validation struct {
	ID            string          `json:"id"`
	SkaterID      string          `json:"skaterId"`
	TrickType     types.TrickType `json:"trickType"`
	VideoURL      string          `json:"videoUrl"`
	Status        types.Status    `json:"status"`
	Scores        []Score         `json:"scores"`
	FinalScore    *int            `json:"finalScore,omitempty"`
	TokensEarned  *int            `json:"tokensEarned,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`

	// Version increments on every stored mutation.
	Version int64 `json:"-"`
}

// HasValidator reports whether validatorID already scored v.
func (v *Validation) HasValidator(validatorID string) bool {
	for _, s := range v.Scores {
		if s.ValidatorID == validatorID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (v Validation) Clone() Validation {
	out := v
	if v.Scores != nil {
		out.Scores = make([]Score, len(v.Scores))
		copy(out.Scores, v.Scores)
	} else {
		out.Scores = []Score{}
	}
	if v.FinalScore != nil {
		fs := *v.FinalScore
		out.FinalScore = &fs
	}
	if v.TokensEarned != nil {
		te := *v.TokensEarned
		out.TokensEarned = &te
	}
	if v.CompletedAt != nil {
		ca := *v.CompletedAt
		out.CompletedAt = &ca
	}
	return out
}
