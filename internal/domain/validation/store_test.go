package validation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tricktrack/tricktrack/internal/adapters/repository"
	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
	"github.com/tricktrack/tricktrack/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newStore() *validation.Store {
	n := 0
	return validation.NewStore(
		repository.NewMemoryStore(),
		validation.WithClock(func() time.Time { return fixedNow }),
		validation.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("val-%d", n)
		}),
	)
}

func score(validator string, landing, style, difficulty int) model.Score {
	return model.Score{ValidatorID: validator, Landing: landing, Style: style, Difficulty: difficulty}
}

func TestStore_Create(t *testing.T) {
	Convey("Given a validation store", t, func() {
		ctx := context.Background()
		store := newStore()

		Convey("When creating a valid submission", func() {
			v, err := store.Create(ctx, "skater-1", types.TrickTreflip, "https://cdn.example/t.mp4")

			Convey("Then it should start pending with no result", func() {
				So(err, ShouldBeNil)
				So(v.ID, ShouldEqual, "val-1")
				So(v.Status, ShouldEqual, types.StatusPending)
				So(v.Scores, ShouldBeEmpty)
				So(v.FinalScore, ShouldBeNil)
				So(v.TokensEarned, ShouldBeNil)
				So(v.CompletedAt, ShouldBeNil)
				So(v.CreatedAt, ShouldEqual, fixedNow)
			})

			Convey("Then it should be retrievable", func() {
				got, err := store.Get(ctx, v.ID)
				So(err, ShouldBeNil)
				So(got.SkaterID, ShouldEqual, "skater-1")
				So(got.TrickType, ShouldEqual, types.TrickTreflip)
			})
		})

		Convey("When creating with bad input", func() {
			_, errTrick := store.Create(ctx, "skater-1", types.TrickType("nollie-laser"), "https://x")
			_, errURL := store.Create(ctx, "skater-1", types.TrickOllie, "   ")
			_, errSkater := store.Create(ctx, "", types.TrickOllie, "https://x")

			Convey("Then InvalidInput should name the field", func() {
				So(errors.Is(errTrick, validation.ErrInvalidInput), ShouldBeTrue)
				So(errTrick.Error(), ShouldContainSubstring, "trickType")
				So(errors.Is(errURL, validation.ErrInvalidInput), ShouldBeTrue)
				So(errURL.Error(), ShouldContainSubstring, "videoUrl")
				So(errors.Is(errSkater, validation.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When getting an unknown id", func() {
			_, err := store.Get(ctx, "nope")

			Convey("Then NotFound should be returned", func() {
				So(errors.Is(err, validation.ErrNotFound), ShouldBeTrue)
				So(validation.KindOf(err), ShouldEqual, validation.ErrNotFound)
			})
		})
	})
}

func TestStore_AppendScore(t *testing.T) {
	Convey("Given a pending validation", t, func() {
		ctx := context.Background()
		store := newStore()
		v, err := store.Create(ctx, "skater", types.TrickKickflip, "https://cdn.example/k.mp4")
		So(err, ShouldBeNil)

		Convey("When the first score arrives", func() {
			got, err := store.AppendScore(ctx, v.ID, score("judge-1", 40, 20, 10))

			Convey("Then the record should move to in-progress", func() {
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, types.StatusInProgress)
				So(len(got.Scores), ShouldEqual, 1)
				So(got.Scores[0].SubmittedAt, ShouldEqual, fixedNow)
			})

			Convey("And the same validator scores again", func() {
				_, err := store.AppendScore(ctx, v.ID, score("judge-1", 1, 1, 1))

				Convey("Then DuplicateValidator should be returned", func() {
					So(errors.Is(err, validation.ErrDuplicateValidator), ShouldBeTrue)
				})
			})
		})

		Convey("When the skater scores their own trick", func() {
			_, err := store.AppendScore(ctx, v.ID, score("skater", 50, 30, 20))

			Convey("Then SelfValidation should be returned", func() {
				So(errors.Is(err, validation.ErrSelfValidation), ShouldBeTrue)
			})
		})

		Convey("When sub-scores sit on the boundary", func() {
			_, errOK := store.AppendScore(ctx, v.ID, score("judge-1", 50, 30, 20))
			_, errLanding := store.AppendScore(ctx, v.ID, score("judge-2", 51, 0, 0))
			_, errStyle := store.AppendScore(ctx, v.ID, score("judge-3", 0, 31, 0))
			_, errDiff := store.AppendScore(ctx, v.ID, score("judge-4", 0, 0, 21))
			_, errNeg := store.AppendScore(ctx, v.ID, score("judge-5", -1, 0, 0))

			Convey("Then only out-of-range values should be rejected", func() {
				So(errOK, ShouldBeNil)
				So(errors.Is(errLanding, validation.ErrOutOfRange), ShouldBeTrue)
				So(errLanding.Error(), ShouldContainSubstring, "landing=51")
				So(errors.Is(errStyle, validation.ErrOutOfRange), ShouldBeTrue)
				So(errors.Is(errDiff, validation.ErrOutOfRange), ShouldBeTrue)
				So(errors.Is(errNeg, validation.ErrOutOfRange), ShouldBeTrue)
			})

			Convey("Then rejected scores should not be stored", func() {
				got, _ := store.Get(ctx, v.ID)
				So(len(got.Scores), ShouldEqual, 1)
			})
		})

		Convey("When scoring an unknown id", func() {
			_, err := store.AppendScore(ctx, "missing", score("judge-1", 1, 1, 1))

			Convey("Then NotFound should be returned", func() {
				So(errors.Is(err, validation.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestStore_TerminalStates(t *testing.T) {
	Convey("Given an in-progress validation", t, func() {
		ctx := context.Background()
		store := newStore()
		v, _ := store.Create(ctx, "skater", types.TrickHardflip, "https://cdn.example/h.mp4")
		_, err := store.AppendScore(ctx, v.ID, score("judge-1", 45, 25, 15))
		So(err, ShouldBeNil)

		Convey("When it is finalized", func() {
			done, err := store.Finalize(ctx, v.ID, 85, 85)
			So(err, ShouldBeNil)

			Convey("Then result fields should be set", func() {
				So(done.Status, ShouldEqual, types.StatusCompleted)
				So(*done.FinalScore, ShouldEqual, 85)
				So(*done.TokensEarned, ShouldEqual, 85)
				So(done.CompletedAt, ShouldNotBeNil)
			})

			Convey("Then every further mutation should fail and change nothing", func() {
				_, errScore := store.AppendScore(ctx, v.ID, score("judge-2", 1, 1, 1))
				_, errFinal := store.Finalize(ctx, v.ID, 10, 10)
				_, errFail := store.MarkFailed(ctx, v.ID, "late abuse report")
				So(errors.Is(errScore, validation.ErrInvalidState), ShouldBeTrue)
				So(errors.Is(errFinal, validation.ErrInvalidState), ShouldBeTrue)
				So(errors.Is(errFail, validation.ErrInvalidState), ShouldBeTrue)

				after, _ := store.Get(ctx, v.ID)
				So(after.Version, ShouldEqual, done.Version)
				So(*after.FinalScore, ShouldEqual, 85)
				So(len(after.Scores), ShouldEqual, 1)
			})

			Convey("Then self-validation should still be reported as such", func() {
				_, err := store.AppendScore(ctx, v.ID, score("skater", 1, 1, 1))
				So(errors.Is(err, validation.ErrSelfValidation), ShouldBeTrue)
			})
		})

		Convey("When it is marked failed", func() {
			failed, err := store.MarkFailed(ctx, v.ID, "video unavailable")

			Convey("Then it should be terminal without a result", func() {
				So(err, ShouldBeNil)
				So(failed.Status, ShouldEqual, types.StatusFailed)
				So(failed.FailureReason, ShouldEqual, "video unavailable")
				So(failed.FinalScore, ShouldBeNil)
				So(failed.TokensEarned, ShouldBeNil)

				_, err = store.Finalize(ctx, v.ID, 50, 50)
				So(errors.Is(err, validation.ErrInvalidState), ShouldBeTrue)
			})
		})
	})

	Convey("Given a pending validation", t, func() {
		ctx := context.Background()
		store := newStore()
		v, _ := store.Create(ctx, "skater", types.TrickOllie, "https://cdn.example/o.mp4")

		Convey("Then it can fail directly but not complete", func() {
			_, errFinal := store.Finalize(ctx, v.ID, 50, 50)
			So(errors.Is(errFinal, validation.ErrInvalidState), ShouldBeTrue)

			failed, err := store.MarkFailed(ctx, v.ID, "")
			So(err, ShouldBeNil)
			So(failed.FailureReason, ShouldEqual, "unspecified")
		})
	})
}
