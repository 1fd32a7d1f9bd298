package tricksim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/scoring"
	"github.com/tricktrack/tricktrack/pkg/logger"
)

const balancePollInterval = 100 * time.Millisecond

// Run executes a full simulation against cfg.BaseURL and renders a summary
// to out. It returns ErrVerification when any submission misbehaved.
func Run(ctx context.Context, cfg *Config, log logger.Logger, out io.Writer) (Stats, []*Outcome, error) {
	var stats Stats
	if err := cfg.Validate(); err != nil {
		return stats, nil, err
	}
	start := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting trick simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("submissions", cfg.Submissions),
		logger.Int("extraScores", cfg.ExtraScores),
		logger.Int("workers", cfg.Workers))

	if err := client.Health(ctx); err != nil {
		return stats, nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	limits, err := client.Limits(ctx)
	if err != nil {
		return stats, nil, fmt.Errorf("fetch limits: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	subs := NewGenerator(seed, limits).Submissions(cfg.Submissions, limits.MinValidators+cfg.ExtraScores)
	log.Info(ctx, "generated submissions",
		logger.Int("count", len(subs)),
		logger.Int("minValidators", limits.MinValidators),
		logger.Int64("seed", int64(seed)))

	outcomes := runSubmissions(ctx, cfg, client, log, subs)

	agg := scoring.NewAggregator(scoring.WithMinValidators(limits.MinValidators))
	for _, o := range outcomes {
		verify(o, limits.MinValidators, cfg.ExtraScores, agg)
	}
	settleBalances(ctx, client, outcomes, cfg.SettleWait)

	stats = summarize(outcomes, cfg.Submissions)
	stats.Duration = time.Since(start)
	Render(out, stats, outcomes)

	if stats.Verified != stats.Submissions {
		return stats, outcomes, fmt.Errorf("%w: %d of %d submissions verified",
			ErrVerification, stats.Verified, stats.Submissions)
	}
	log.Info(ctx, "simulation completed", logger.Duration("duration", stats.Duration))
	return stats, outcomes, nil
}

// runSubmissions creates each submission and fires all of its scores at once.
func runSubmissions(ctx context.Context, cfg *Config, client *Client, log logger.Logger, subs []*Submission) []*Outcome {
	outcomes := make([]*Outcome, len(subs))
	jobs := make(chan int, cfg.Workers*2)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = runSubmission(ctx, client, log, subs[i], cfg.Verbose)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range subs {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	// Submissions skipped by cancellation still get an outcome.
	for i, o := range outcomes {
		if o == nil {
			outcomes[i] = &Outcome{SkaterID: subs[i].SkaterID, Problems: []string{"not submitted"}}
		}
	}
	return outcomes
}

func runSubmission(ctx context.Context, client *Client, log logger.Logger, s *Submission, verbose bool) *Outcome {
	o := &Outcome{SkaterID: s.SkaterID}
	rec, err := client.Create(ctx, s)
	if err != nil {
		o.Problems = append(o.Problems, "create: "+err.Error())
		return o
	}
	o.ValidationID = rec.ID

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, in := range s.Scores {
		wg.Add(1)
		go func(in ScoreInput) {
			defer wg.Done()
			v, err := client.Score(ctx, rec.ID, in)

			mu.Lock()
			defer mu.Unlock()
			var apiErr *APIError
			switch {
			case err == nil:
				o.Accepted++
				if v.FinalScore != nil {
					o.Completions++
				}
			case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
				o.Rejected++
			default:
				o.Failed++
				o.Problems = append(o.Problems, "score: "+err.Error())
			}
		}(in)
	}
	wg.Wait()

	if verbose {
		log.Debug(ctx, "submission scored",
			logger.String("validationId", rec.ID),
			logger.Int("accepted", o.Accepted),
			logger.Int("rejected", o.Rejected))
	}

	final, err := client.Get(ctx, rec.ID)
	if err != nil {
		o.Problems = append(o.Problems, "get: "+err.Error())
		return o
	}
	o.Final = final
	return o
}

// settleBalances polls each skater's balance until it matches the tokens
// earned or wait elapses. Rewards are credited asynchronously.
func settleBalances(ctx context.Context, client *Client, outcomes []*Outcome, wait time.Duration) {
	deadline := time.Now().Add(wait)
	for _, o := range outcomes {
		if o.Final.TokensEarned == nil {
			continue
		}
		want := *o.Final.TokensEarned
		for {
			b, err := client.Balance(ctx, o.SkaterID)
			if err == nil {
				o.Balance = b.Balance
			}
			if o.Balance == want || time.Now().After(deadline) || ctx.Err() != nil {
				break
			}
			time.Sleep(balancePollInterval)
		}
		if o.Balance != want {
			o.Problems = append(o.Problems, fmt.Sprintf("balance %d, want %d", o.Balance, want))
		}
	}
}

func summarize(outcomes []*Outcome, submissions int) Stats {
	s := Stats{Submissions: submissions}
	for _, o := range outcomes {
		if o.ValidationID != "" {
			s.Created++
		}
		s.ScoresAccepted += o.Accepted
		s.ScoresRejected += o.Rejected
		s.ScoresFailed += o.Failed
		s.ScoresSent += o.Accepted + o.Rejected + o.Failed
		if o.Final.FinalScore != nil {
			s.Completed++
		}
		if o.Final.TokensEarned != nil {
			s.TokensAwarded += *o.Final.TokensEarned
		}
		if len(o.Problems) == 0 {
			s.Verified++
		}
	}
	return s
}
