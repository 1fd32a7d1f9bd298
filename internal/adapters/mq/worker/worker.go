// Package worker credits reward events from the queue into the token ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/dedupe"
	"github.com/tricktrack/tricktrack/internal/domain/ledger"
	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/pkg/logger"
	"github.com/tricktrack/tricktrack/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Event is what workers read off the queue.
type Event = model.RewardEvent

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Crediter applies a reward to the ledger.
type Crediter interface {
	Credit(ctx context.Context, e model.RewardEvent) (model.RewardReceipt, error)
}

// Worker processes reward events.
type Worker interface {
	// Run consumes events until the queue is drained or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker credits each event at most once.
type InMemoryWorker struct {
	queue    Queue
	crediter Crediter
	deduper  dedupe.Deduper
	name     string

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker. A nil deduper falls back to an
// unbounded in-memory one.
func NewInMemoryWorker(q Queue, crediter Crediter, deduper dedupe.Deduper, opts ...Option) *InMemoryWorker {
	if deduper == nil {
		deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	}
	w := &InMemoryWorker{
		queue:    q,
		crediter: crediter,
		deduper:  deduper,
		name:     "reward-worker",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for e := range w.queue.Dequeue(ctx) {
		if err := w.Process(ctx, e); err != nil {
			w.logger.Error(ctx, "error crediting reward",
				logger.String("validationID", e.ValidationID),
				logger.Error(err),
			)
		}
	}
}

// Shutdown waits for the worker to finish its current backlog.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process credits a single event. Duplicates are skipped without error.
func (w *InMemoryWorker) Process(ctx context.Context, e Event) error {
	if w.deduper.SeenAndRecord(ctx, e.ValidationID) {
		metrics.RecordRewardDuplicate()
		return nil
	}

	receipt, err := w.crediter.Credit(ctx, e)
	switch {
	case errors.Is(err, ledger.ErrAlreadyCredited):
		metrics.RecordRewardDuplicate()
		return nil
	case err != nil:
		// Forget the id so a redelivery can try again.
		w.deduper.Unrecord(ctx, e.ValidationID)
		metrics.RecordRewardError()
		return fmt.Errorf("credit validation %s: %w", e.ValidationID, err)
	}

	metrics.RecordRewardCredited(receipt.Reward.Amount)
	for _, b := range receipt.Bonuses {
		metrics.RecordValidatorBonus(b.Amount)
	}
	badge := ""
	if receipt.Badge != nil {
		badge = string(receipt.Badge.Tier)
		metrics.RecordBadgeAwarded(badge)
	}
	w.logger.Debug(ctx, "reward credited",
		logger.String("validationID", e.ValidationID),
		logger.String("skaterID", e.SkaterID),
		logger.Int("tokens", receipt.Reward.Amount),
		logger.Int("bonuses", len(receipt.Bonuses)),
		logger.String("badge", badge),
	)
	return nil
}

// Pool manages multiple workers sharing one queue and one deduper.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, crediter Crediter, deduper dedupe.Deduper) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if deduper == nil {
		deduper = dedupe.NewInMemoryDeduper()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Named("reward-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, crediter, deduper,
			WithName("reward-worker-"+strconv.Itoa(i)))
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Shutdown closes the queue, lets the workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}
