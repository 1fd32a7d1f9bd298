// Package lifecycle orchestrates the validation state machine: it accepts
// validator scores, decides when a record is complete and publishes rewards.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/scoring"
	"github.com/tricktrack/tricktrack/internal/domain/validation"
	"github.com/tricktrack/tricktrack/pkg/logger"
	"github.com/tricktrack/tricktrack/pkg/metrics"
)

const (
	opSubmitScore = "lifecycle.submit_score"
	opFinalize    = "lifecycle.finalize"
	opFail        = "lifecycle.fail"
)

// Publisher receives reward events for completed validations. It is called
// after the record's critical section has been released.
type Publisher interface {
	Publish(ctx context.Context, e model.RewardEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, model.RewardEvent) {}

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithRewarder replaces the reward rule.
func WithRewarder(r scoring.Rewarder) Option {
	return func(c *Controller) {
		if r != nil {
			c.rewarder = r
		}
	}
}

// WithPublisher sets where completion rewards are sent.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller is the only component that completes or fails validations.
type Controller struct {
	store      *validation.Store
	aggregator *scoring.Aggregator
	rewarder   scoring.Rewarder
	publisher  Publisher
	logger     logger.Logger
}

// NewController wires a controller over store and aggregator.
func NewController(store *validation.Store, aggregator *scoring.Aggregator, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		aggregator: aggregator,
		rewarder:   scoring.FlatReward,
		publisher:  noopPublisher{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("lifecycle")
	}
	return c
}

// SubmitScore appends a validator's score and, in the same atomic unit,
// completes the record once enough validators have scored it.
func (c *Controller) SubmitScore(ctx context.Context, id string, score model.Score) (model.Validation, error) {
	var completed bool
	v, err := c.store.Mutate(ctx, opSubmitScore, id, func(v *model.Validation) error {
		// The mutation may be re-run by an optimistic backend.
		completed = false
		if err := c.store.ApplyScore(v, score); err != nil {
			return err
		}
		if !c.aggregator.Eligible(len(v.Scores)) {
			return nil
		}
		if err := c.complete(v); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		metrics.RecordScoreRejected(validation.Code(err))
		c.logger.Debug(ctx, "score rejected",
			logger.String("validationID", id),
			logger.String("validatorID", score.ValidatorID),
			logger.Error(err),
		)
		return model.Validation{}, err
	}

	metrics.RecordScoreAccepted()
	if completed {
		c.afterCompletion(ctx, v)
	}
	return v, nil
}

// Finalize completes an in-progress record that already has enough scores,
// for instance after the validator threshold was lowered.
func (c *Controller) Finalize(ctx context.Context, id string) (model.Validation, error) {
	v, err := c.store.Mutate(ctx, opFinalize, id, func(v *model.Validation) error {
		if !v.Status.Terminal() && !c.aggregator.Eligible(len(v.Scores)) {
			return &validation.Error{
				Op:     opFinalize,
				Kind:   validation.ErrInvalidState,
				Detail: fmt.Sprintf("validation %s has %d of %d required scores", v.ID, len(v.Scores), c.aggregator.MinValidators()),
			}
		}
		return c.complete(v)
	})
	if err != nil {
		return model.Validation{}, err
	}
	c.afterCompletion(ctx, v)
	return v, nil
}

// Fail moves a pending or in-progress record to failed. Failed records never
// recover.
func (c *Controller) Fail(ctx context.Context, id, reason string) (model.Validation, error) {
	v, err := c.store.MarkFailed(ctx, id, reason)
	if err != nil {
		return model.Validation{}, err
	}
	metrics.RecordValidationFailed()
	c.logger.Info(ctx, "validation failed",
		logger.String("validationID", v.ID),
		logger.String("reason", v.FailureReason),
	)
	return v, nil
}

// MinValidators exposes the completion threshold.
func (c *Controller) MinValidators() int {
	return c.aggregator.MinValidators()
}

func (c *Controller) complete(v *model.Validation) error {
	final, err := c.aggregator.FinalScore(v.Scores)
	if err != nil {
		return &validation.Error{Op: opFinalize, Kind: validation.ErrInvalidState, Detail: "cannot aggregate", Err: err}
	}
	return c.store.ApplyFinalize(v, final, c.rewarder.Reward(final, v.TrickType))
}

func (c *Controller) afterCompletion(ctx context.Context, v model.Validation) {
	final, tokens := *v.FinalScore, *v.TokensEarned
	metrics.RecordValidationCompleted(string(v.TrickType), final, tokens)
	c.logger.Info(ctx, "validation completed",
		logger.String("validationID", v.ID),
		logger.String("skaterID", v.SkaterID),
		logger.Int("finalScore", final),
		logger.Int("tokensEarned", tokens),
	)
	validators := make([]string, len(v.Scores))
	for i, sc := range v.Scores {
		validators[i] = sc.ValidatorID
	}
	c.publisher.Publish(ctx, model.RewardEvent{
		ValidationID: v.ID,
		SkaterID:     v.SkaterID,
		ValidatorIDs: validators,
		TrickType:    v.TrickType,
		FinalScore:   final,
		Tokens:       tokens,
		CompletedAt:  *v.CompletedAt,
	})
}
