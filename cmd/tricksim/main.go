package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tricktrack/tricktrack/internal/tricksim"
	"github.com/tricktrack/tricktrack/pkg/logger"
)

// Default configuration constants.
const (
	defaultSubmissions = 200
	defaultExtraScores = 2
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultSettleWait  = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &tricksim.Config{}
	var (
		logFormat  string
		runTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tricksim",
		Short: "Drive a TrickTrack service with concurrent submissions and scores",
		Long: `tricksim creates trick submissions against a running TrickTrack service,
fires more validator scores at each one than the completion threshold needs,
and checks that every submission completed exactly once with the rounded mean
of its accepted scores and that the skater was credited the earned tokens.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat)); err != nil {
				return err
			}
			if cfg.Verbose {
				_ = logger.SetLevelString("debug")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			_, _, err := tricksim.Run(ctx, cfg, logger.Named("tricksim"), cmd.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVarP(&cfg.Submissions, "submissions", "n", defaultSubmissions, "number of trick submissions")
	f.IntVar(&cfg.ExtraScores, "extra-scores", defaultExtraScores, "validators per submission beyond the threshold")
	f.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU()*defaultWorkers, "submissions processed in parallel")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "per-request timeout")
	f.DurationVar(&cfg.SettleWait, "settle", defaultSettleWait, "how long to wait for rewards to be credited")
	f.Uint64Var(&cfg.Seed, "seed", 0, "random seed (0 picks one)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every submission")
	f.StringVar(&logFormat, "log-format", logger.FormatText, "log format: text or json")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "overall run timeout")
	return cmd
}
