package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	service "github.com/tricktrack/tricktrack/internal/app"
	"github.com/tricktrack/tricktrack/internal/adapters/repository"
	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
	"github.com/tricktrack/tricktrack/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func waitForBalance(svc *service.Service, user string, want int) model.TokenBalance {
	deadline := time.Now().Add(5 * time.Second)
	for {
		b, _ := svc.Balance(context.Background(), user)
		if b.Balance == want || time.Now().After(deadline) {
			return b
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func score(validator string, landing, style, difficulty int) model.Score {
	return model.Score{ValidatorID: validator, Landing: landing, Style: style, Difficulty: difficulty}
}

func TestServiceIntegration(t *testing.T) {
	backends := map[string]func(t *testing.T) service.Option{
		"memory": func(*testing.T) service.Option { return service.WithMemoryStore(4) },
		"sqlite": func(t *testing.T) service.Option {
			return service.WithSQLiteStore(filepath.Join(t.TempDir(), "tricktrack.db"))
		},
	}

	for name, backend := range backends {
		backend := backend
		Convey("Given a started service on the "+name+" backend", t, func() {
			ctx := context.Background()
			svc := service.New(backend(t), service.WithWorkerCount(2), service.WithQueueSize(64))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			v, err := svc.Create(ctx, "skater-1", "kickflip", "https://cdn.example/k.mp4")
			So(err, ShouldBeNil)
			So(v.Status, ShouldEqual, types.StatusPending)

			Convey("When three validators score the trick", func() {
				_, err1 := svc.SubmitScore(ctx, v.ID, score("judge-a", 50, 30, 20))
				_, err2 := svc.SubmitScore(ctx, v.ID, score("judge-b", 40, 20, 10))
				done, err3 := svc.SubmitScore(ctx, v.ID, score("judge-c", 45, 25, 15))

				Convey("Then the validation should complete and the skater be paid once", func() {
					So(err1, ShouldBeNil)
					So(err2, ShouldBeNil)
					So(err3, ShouldBeNil)
					So(done.Status, ShouldEqual, types.StatusCompleted)
					So(*done.FinalScore, ShouldEqual, 85)
					So(*done.TokensEarned, ShouldEqual, 85)

					b := waitForBalance(svc, "skater-1", 85)
					So(b.Balance, ShouldEqual, 85)
					So(b.PendingBalance, ShouldEqual, 0)

					txs, err := svc.Transactions(ctx, "skater-1")
					So(err, ShouldBeNil)
					So(len(txs), ShouldEqual, 1)
					So(txs[0].ValidationID, ShouldEqual, v.ID)

					badges, err := svc.Badges(ctx, "skater-1")
					So(err, ShouldBeNil)
					So(len(badges), ShouldEqual, 1)
					So(badges[0].Tier, ShouldEqual, model.BadgeSilver)

					for _, judge := range []string{"judge-a", "judge-b", "judge-c"} {
						jb, _ := svc.Balance(ctx, judge)
						So(jb.Balance, ShouldEqual, 5)
					}
				})

				Convey("Then stats should count the completion", func() {
					stats := svc.GetStats()
					So(stats["validations"], ShouldEqual, 1)
					So(stats["byStatus"].(map[string]int)["completed"], ShouldEqual, 1)
				})
			})

			Convey("When the skater validates their own trick", func() {
				_, err := svc.SubmitScore(ctx, v.ID, score("skater-1", 50, 30, 20))

				Convey("Then SelfValidation should be returned", func() {
					So(errors.Is(err, validation.ErrSelfValidation), ShouldBeTrue)
				})
			})

			Convey("When the validation is failed", func() {
				failed, err := svc.Fail(ctx, v.ID, "")

				Convey("Then the default reason should be recorded and nothing paid", func() {
					So(err, ShouldBeNil)
					So(failed.Status, ShouldEqual, types.StatusFailed)
					So(failed.FailureReason, ShouldEqual, "unspecified")
					_, err = svc.Finalize(ctx, v.ID)
					So(errors.Is(err, validation.ErrInvalidState), ShouldBeTrue)
					b, _ := svc.Balance(ctx, "skater-1")
					So(b.Balance, ShouldEqual, 0)
				})
			})

			Convey("When validations are listed by skater", func() {
				_, err := svc.Create(ctx, "skater-2", "ollie", "https://cdn.example/o.mp4")
				So(err, ShouldBeNil)
				list, err := svc.List(ctx, repository.Filter{SkaterID: "skater-1"})

				Convey("Then only that skater's records should be returned", func() {
					So(err, ShouldBeNil)
					So(len(list), ShouldEqual, 1)
					So(list[0].ID, ShouldEqual, v.ID)
				})
			})
		})
	}
}

func TestServiceIntegration_ConcurrentScoring(t *testing.T) {
	Convey("Given many submissions and a crowd of validators", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(2), // force the inline credit path as well
			service.WithTrickMultipliers(map[string]float64{"treflip": 2}, 1),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		const submissions, judges = 20, 8
		ids := make([]string, submissions)
		for i := range ids {
			v, err := svc.Create(ctx, "pro", "treflip", fmt.Sprintf("https://cdn.example/%d.mp4", i))
			So(err, ShouldBeNil)
			ids[i] = v.ID
		}

		Convey("When every judge scores every submission at once", func() {
			var wg sync.WaitGroup
			for _, id := range ids {
				for j := 0; j < judges; j++ {
					wg.Add(1)
					go func(id string, j int) {
						defer wg.Done()
						_, _ = svc.SubmitScore(ctx, id, score(fmt.Sprintf("judge-%d", j), 25, 15, 10))
					}(id, j)
				}
			}
			wg.Wait()

			Convey("Then each submission should pay out exactly once", func() {
				for _, id := range ids {
					v, err := svc.Get(ctx, id)
					So(err, ShouldBeNil)
					So(v.Status, ShouldEqual, types.StatusCompleted)
					So(len(v.Scores), ShouldEqual, 3)
					So(*v.TokensEarned, ShouldEqual, 100)
				}
				b := waitForBalance(svc, "pro", submissions*100)
				So(b.Balance, ShouldEqual, submissions*100)
				So(b.PendingBalance, ShouldEqual, 0)
			})
		})
	})
}
