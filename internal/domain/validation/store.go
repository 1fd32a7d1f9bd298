// Package validation implements the validation record store: creation,
// lookup and the guarded mutations of a trick submission.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tricktrack/tricktrack/internal/adapters/repository"
	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
)

// Operation names used in errors and logs.
const (
	opCreate      = "validation.create"
	opGet         = "validation.get"
	opAppendScore = "validation.append_score"
	opFinalize    = "validation.finalize"
	opMarkFailed  = "validation.mark_failed"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new record ids are allocated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store owns validation records and enforces their invariants. Each
// mutating method is a single atomic unit per record.
type Store struct {
	repo  repository.Store
	now   func() time.Time
	newID func() string
}

// NewStore wraps a repository backend.
func NewStore(repo repository.Store, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// Create registers a new pending submission.
func (s *Store) Create(ctx context.Context, skaterID string, trick types.TrickType, videoURL string) (model.Validation, error) {
	skaterID = strings.TrimSpace(skaterID)
	videoURL = strings.TrimSpace(videoURL)
	switch {
	case skaterID == "":
		return model.Validation{}, newError(opCreate, ErrInvalidInput, "skaterId must not be empty")
	case !trick.Valid():
		return model.Validation{}, newError(opCreate, ErrInvalidInput, "unknown trickType %q", trick)
	case videoURL == "":
		return model.Validation{}, newError(opCreate, ErrInvalidInput, "videoUrl must not be empty")
	}

	now := s.Now()
	v := model.Validation{
		ID:        s.newID(),
		SkaterID:  skaterID,
		TrickType: trick,
		VideoURL:  videoURL,
		Status:    types.StatusPending,
		Scores:    []model.Score{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, v); err != nil {
		return model.Validation{}, fmt.Errorf("%s: store record: %w", opCreate, err)
	}
	return v, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (model.Validation, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Validation{}, s.translate(opGet, id, err)
	}
	return v, nil
}

// List returns records matching f, newest first.
func (s *Store) List(ctx context.Context, f repository.Filter) ([]model.Validation, error) {
	return s.repo.List(ctx, f)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) int {
	return s.repo.Count(ctx)
}

// CountByStatus returns record counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[types.Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// AppendScore adds a validator's score to an active record.
func (s *Store) AppendScore(ctx context.Context, id string, score model.Score) (model.Validation, error) {
	return s.mutate(ctx, opAppendScore, id, func(v *model.Validation) error {
		return s.ApplyScore(v, score)
	})
}

// Finalize completes an active record with its aggregated result.
func (s *Store) Finalize(ctx context.Context, id string, finalScore, tokens int) (model.Validation, error) {
	return s.mutate(ctx, opFinalize, id, func(v *model.Validation) error {
		return s.ApplyFinalize(v, finalScore, tokens)
	})
}

// MarkFailed moves an active record to failed.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) (model.Validation, error) {
	return s.mutate(ctx, opMarkFailed, id, func(v *model.Validation) error {
		return s.ApplyFailed(v, reason)
	})
}

// Mutate runs fn as one atomic unit on the record, translating repository
// errors into this package's kinds. fn sees a working copy; an error from fn
// leaves the record unchanged.
func (s *Store) Mutate(ctx context.Context, op, id string, fn repository.MutateFunc) (model.Validation, error) {
	return s.mutate(ctx, op, id, fn)
}

func (s *Store) mutate(ctx context.Context, op, id string, fn repository.MutateFunc) (model.Validation, error) {
	v, err := s.repo.Update(ctx, id, fn)
	if err != nil {
		return model.Validation{}, s.translate(op, id, err)
	}
	return v, nil
}

func (s *Store) translate(op, id string, err error) error {
	var verr *Error
	if errors.As(err, &verr) {
		return verr
	}
	if errors.Is(err, repository.ErrNotFound) {
		return newError(op, ErrNotFound, "no validation with id %q", id)
	}
	return err
}

// ApplyScore validates score against v and appends it, moving a pending
// record to in-progress.
func (s *Store) ApplyScore(v *model.Validation, score model.Score) error {
	score.ValidatorID = strings.TrimSpace(score.ValidatorID)
	if score.ValidatorID == "" {
		return newError(opAppendScore, ErrInvalidInput, "validatorId must not be empty")
	}
	// Self-validation is rejected whatever the record's state.
	if score.ValidatorID == v.SkaterID {
		return newError(opAppendScore, ErrSelfValidation, "validator %q is the skater of %s", score.ValidatorID, v.ID)
	}
	if v.Status.Terminal() {
		return newError(opAppendScore, ErrInvalidState, "validation %s is %s", v.ID, v.Status)
	}
	if v.HasValidator(score.ValidatorID) {
		return newError(opAppendScore, ErrDuplicateValidator, "validator %q already scored %s", score.ValidatorID, v.ID)
	}
	if err := checkRange(score); err != nil {
		return err
	}

	now := s.Now()
	score.SubmittedAt = now
	v.Scores = append(v.Scores, score)
	if v.Status == types.StatusPending {
		v.Status = types.StatusInProgress
	}
	v.UpdatedAt = now
	return nil
}

func checkRange(score model.Score) error {
	bounds := []struct {
		name  string
		value int
		max   int
	}{
		{"landing", score.Landing, types.MaxLanding},
		{"style", score.Style, types.MaxStyle},
		{"difficulty", score.Difficulty, types.MaxDifficulty},
	}
	for _, b := range bounds {
		if b.value < 0 || b.value > b.max {
			return newError(opAppendScore, ErrOutOfRange, "%s=%d outside 0..%d", b.name, b.value, b.max)
		}
	}
	return nil
}

// ApplyFinalize completes v with its aggregated result.
func (s *Store) ApplyFinalize(v *model.Validation, finalScore, tokens int) error {
	if !v.Status.CanTransition(types.StatusCompleted) {
		return newError(opFinalize, ErrInvalidState, "cannot complete validation %s from %s", v.ID, v.Status)
	}
	if finalScore < 0 || finalScore > types.MaxTotal {
		return newError(opFinalize, ErrOutOfRange, "finalScore=%d outside 0..%d", finalScore, types.MaxTotal)
	}
	if tokens < 0 {
		return newError(opFinalize, ErrOutOfRange, "tokensEarned=%d is negative", tokens)
	}
	now := s.Now()
	v.Status = types.StatusCompleted
	v.FinalScore = &finalScore
	v.TokensEarned = &tokens
	v.CompletedAt = &now
	v.UpdatedAt = now
	return nil
}

// ApplyFailed moves v to failed, recording reason.
func (s *Store) ApplyFailed(v *model.Validation, reason string) error {
	if !v.Status.CanTransition(types.StatusFailed) {
		return newError(opMarkFailed, ErrInvalidState, "cannot fail validation %s from %s", v.ID, v.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unspecified"
	}
	v.Status = types.StatusFailed
	v.FailureReason = reason
	v.UpdatedAt = s.Now()
	return nil
}
