// Package service wires the validation store, lifecycle controller and
// reward pipeline into the dependency used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	rewardqueue "github.com/tricktrack/tricktrack/internal/adapters/mq/queue"
	rewardworker "github.com/tricktrack/tricktrack/internal/adapters/mq/worker"
	"github.com/tricktrack/tricktrack/internal/adapters/repository"
	"github.com/tricktrack/tricktrack/internal/domain/dedupe"
	"github.com/tricktrack/tricktrack/internal/domain/ledger"
	"github.com/tricktrack/tricktrack/internal/domain/lifecycle"
	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/scoring"
	"github.com/tricktrack/tricktrack/internal/domain/types"
	"github.com/tricktrack/tricktrack/internal/domain/validation"
	"github.com/tricktrack/tricktrack/pkg/logger"
	"github.com/tricktrack/tricktrack/pkg/metrics"
)

const (
	stopTimeout           = 30 * time.Second
	defaultValidatorBonus = 5
)

// Service implements the API dependencies for trick validation.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo       repository.Store
	store      *validation.Store
	controller *lifecycle.Controller
	ledger     *ledger.Ledger
	queue      *rewardqueue.InMemoryQueue
	pool       *rewardworker.Pool
	fallback   *rewardworker.InMemoryWorker

	// Configuration
	minValidators     int
	backend           string
	sqlitePath        string
	shardCount        int
	workerCount       int
	queueSize         int
	dedupeSize        int
	multipliers       map[string]float64
	defaultMultiplier float64
	validatorBonus    int

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Nothing is allocated until Start.
func New(opts ...Option) *Service {
	s := &Service{
		minValidators:     scoring.DefaultMinValidators,
		backend:           BackendMemory,
		workerCount:       runtime.NumCPU(),
		queueSize:         4096,
		dedupeSize:        100_000,
		defaultMultiplier: 1.0,
		validatorBonus:    defaultValidatorBonus,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and starts the reward workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.logger.Info(ctx, "starting validation service...")

	rewarder, err := s.buildRewarder()
	if err != nil {
		return err
	}
	repo, err := s.openRepository(ctx)
	if err != nil {
		return err
	}

	s.repo = repo
	s.store = validation.NewStore(repo)
	s.ledger = ledger.New(ledger.WithValidatorBonus(s.validatorBonus))
	s.queue = rewardqueue.NewInMemoryQueue(rewardqueue.WithCapacity(s.queueSize))
	deduper := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.pool = rewardworker.NewPool(s.workerCount, s.queue, s.ledger, deduper)
	s.fallback = rewardworker.NewInMemoryWorker(s.queue, s.ledger, deduper,
		rewardworker.WithName("reward-fallback"))
	s.controller = lifecycle.NewController(
		s.store,
		scoring.NewAggregator(scoring.WithMinValidators(s.minValidators)),
		lifecycle.WithRewarder(rewarder),
		lifecycle.WithPublisher(&rewardPublisher{svc: s}),
		lifecycle.WithLogger(s.logger.Named("lifecycle")),
	)

	// Workers outlive the start context; Stop drains them.
	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.pool.Start(workerCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "validation service started",
		logger.String("backend", s.backend),
		logger.Int("minValidators", s.minValidators),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

func (s *Service) openRepository(ctx context.Context) (repository.Store, error) {
	switch s.backend {
	case BackendMemory:
		return repository.NewMemoryStore(repository.WithShardCount(s.shardCount)), nil
	case BackendSQLite:
		repo, err := repository.OpenSQLite(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.backend)
	}
}

func (s *Service) buildRewarder() (scoring.Rewarder, error) {
	if len(s.multipliers) == 0 && s.defaultMultiplier == 1.0 {
		return scoring.FlatReward, nil
	}
	return scoring.NewWeightedReward(s.multipliers, s.defaultMultiplier)
}

// Stop drains pending rewards and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping validation service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "reward workers did not drain", logger.Error(err))
	}
	s.cancel()
	if err := s.repo.Close(); err != nil {
		s.logger.Error(ctx, "closing store failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "validation service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Create registers a new pending submission. Trick names are matched
// case-insensitively.
func (s *Service) Create(ctx context.Context, skaterID, trick, videoURL string) (model.Validation, error) {
	if err := s.ready(); err != nil {
		return model.Validation{}, err
	}
	t, _ := types.ParseTrickType(trick)
	v, err := s.store.Create(ctx, skaterID, t, videoURL)
	if err != nil {
		return model.Validation{}, err
	}
	metrics.RecordValidationCreated(string(v.TrickType))
	s.logger.Debug(ctx, "validation created",
		logger.String("validationID", v.ID),
		logger.String("skaterID", v.SkaterID),
		logger.String("trick", string(v.TrickType)),
	)
	return v, nil
}

// Get returns a validation by id.
func (s *Service) Get(ctx context.Context, id string) (model.Validation, error) {
	if err := s.ready(); err != nil {
		return model.Validation{}, err
	}
	return s.store.Get(ctx, id)
}

// List returns validations matching f, newest first.
func (s *Service) List(ctx context.Context, f repository.Filter) ([]model.Validation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, f)
}

// SubmitScore records a validator's score.
func (s *Service) SubmitScore(ctx context.Context, id string, score model.Score) (model.Validation, error) {
	if err := s.ready(); err != nil {
		return model.Validation{}, err
	}
	return s.controller.SubmitScore(ctx, id, score)
}

// Finalize completes a validation that already has enough scores.
func (s *Service) Finalize(ctx context.Context, id string) (model.Validation, error) {
	if err := s.ready(); err != nil {
		return model.Validation{}, err
	}
	return s.controller.Finalize(ctx, id)
}

// Fail rejects an active validation.
func (s *Service) Fail(ctx context.Context, id, reason string) (model.Validation, error) {
	if err := s.ready(); err != nil {
		return model.Validation{}, err
	}
	return s.controller.Fail(ctx, id, reason)
}

// Balance returns a user's token balance.
func (s *Service) Balance(ctx context.Context, userID string) (model.TokenBalance, error) {
	if err := s.ready(); err != nil {
		return model.TokenBalance{}, err
	}
	return s.ledger.Balance(ctx, userID)
}

// Transactions returns a user's credited rewards, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]model.TokenTransaction, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.ledger.Transactions(ctx, userID)
}

// Badges returns a user's badges, newest first.
func (s *Service) Badges(ctx context.Context, userID string) ([]model.Badge, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.ledger.Badges(ctx, userID)
}

// MinValidators returns the completion threshold.
func (s *Service) MinValidators() int {
	return s.minValidators
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"backend":       s.backend,
		"minValidators": s.minValidators,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	records := s.store.Count(ctx)
	credited, pending := s.ledger.Totals()
	stats["uptimeSeconds"] = int(time.Since(s.startedAt).Seconds())
	stats["validations"] = records
	stats["queueLength"] = s.queue.Len()
	stats["rewardsCredited"] = credited
	stats["rewardsPending"] = pending
	counts := make(map[string]int, 4)
	for _, st := range []types.Status{types.StatusPending, types.StatusInProgress, types.StatusCompleted, types.StatusFailed} {
		counts[string(st)] = 0
	}
	if byStatus, err := s.store.CountByStatus(ctx); err == nil {
		for st, n := range byStatus {
			counts[string(st)] = n
		}
	} else {
		s.logger.Warn(ctx, "status counts unavailable", logger.Error(err))
	}
	stats["byStatus"] = counts

	metrics.UpdateRewardQueueSize(s.queue.Len())
	return stats
}

// rewardPublisher reserves a completed validation's tokens and hands the
// event to the workers. A full queue is credited inline.
type rewardPublisher struct {
	svc *Service
}

func (p *rewardPublisher) Publish(ctx context.Context, e model.RewardEvent) {
	s := p.svc
	if err := s.ledger.Reserve(ctx, e); err != nil && !errors.Is(err, ledger.ErrAlreadyCredited) {
		s.logger.Error(ctx, "reserving reward failed",
			logger.String("validationID", e.ValidationID), logger.Error(err))
		return
	}

	err := s.queue.Enqueue(context.WithoutCancel(ctx), e)
	if err == nil {
		return
	}
	s.logger.Warn(ctx, "reward queue rejected event; crediting inline",
		logger.String("validationID", e.ValidationID),
		logger.String("reason", strings.TrimPrefix(err.Error(), "reward queue ")),
	)
	if err := s.fallback.Process(ctx, e); err != nil {
		s.logger.Error(ctx, "inline reward credit failed",
			logger.String("validationID", e.ValidationID), logger.Error(err))
	}
}
