// Package tricksim drives a running TrickTrack service with concurrent
// submissions and validator scores, then checks every record completed once
// with the expected final score and reward.
package tricksim

import (
	"errors"
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/model"
)

// Error constants.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrUnhealthy     = errors.New("service is not healthy")
	ErrVerification  = errors.New("verification failed")
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Service root, without /api/v1.
	Submissions int           // Number of trick submissions to create.
	ExtraScores int           // Validators per submission beyond the completion threshold.
	Workers     int           // Submissions processed in parallel.
	Timeout     time.Duration // Per-request timeout.
	SettleWait  time.Duration // How long to wait for rewards to be credited.
	Seed        uint64        // Random seed; zero picks one from the clock.
	Verbose     bool
}

// Validate reports whether c can drive a run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base url is required"))
	case c.Submissions <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("submissions must be positive"))
	case c.ExtraScores < 0:
		return errors.Join(ErrInvalidConfig, errors.New("extra scores must not be negative"))
	case c.Workers <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("workers must be positive"))
	case c.Timeout <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("timeout must be positive"))
	}
	return nil
}

// Limits describe what the service accepts, as reported by GET /tricks.
type Limits struct {
	Tricks        []string `json:"tricks"`
	MinValidators int      `json:"minValidators"`
	ScoreLimits   struct {
		Landing    int `json:"landing"`
		Style      int `json:"style"`
		Difficulty int `json:"difficulty"`
	} `json:"scoreLimits"`
}

// Submission is one generated trick and the validators that will judge it.
type Submission struct {
	SkaterID  string           `json:"skaterId"`
	TrickType string           `json:"trickType"`
	VideoURL  string           `json:"videoUrl"`
	Scores    []ScoreInput     `json:"-"`
	Record    model.Validation `json:"-"`
}

// ScoreInput is the body of POST /validations/{id}/scores.
type ScoreInput struct {
	ValidatorID string `json:"validatorId"`
	Landing     int    `json:"landing"`
	Style       int    `json:"style"`
	Difficulty  int    `json:"difficulty"`
	Feedback    string `json:"feedback,omitempty"`
}

// Outcome records what happened to one submission.
type Outcome struct {
	ValidationID string
	SkaterID     string
	Accepted     int // 200 responses
	Rejected     int // 409 responses after completion
	Failed       int // anything else
	Completions  int // accepted responses that carried status completed
	Final        model.Validation
	Balance      int
	Problems     []string
}

// Stats summarises a run.
type Stats struct {
	Submissions    int
	Created        int
	ScoresSent     int
	ScoresAccepted int
	ScoresRejected int
	ScoresFailed   int
	Completed      int
	Verified       int
	TokensAwarded  int
	Duration       time.Duration
}
