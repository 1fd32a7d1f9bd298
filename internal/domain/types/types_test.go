package types_test

import (
	"testing"

	"github.com/tricktrack/tricktrack/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTrickType(t *testing.T) {
	Convey("Given the trick enumeration", t, func() {
		Convey("Then it should contain ten tricks", func() {
			So(len(types.Tricks()), ShouldEqual, 10)
		})

		Convey("When parsing a known trick with noise", func() {
			trick, ok := types.ParseTrickType("  Pop-Shuvit ")

			Convey("Then it should normalise it", func() {
				So(ok, ShouldBeTrue)
				So(trick, ShouldEqual, types.TrickPopShuvit)
			})
		})

		Convey("When parsing an unknown trick", func() {
			_, ok := types.ParseTrickType("impossible")

			Convey("Then it should be rejected", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the returned slice is modified", func() {
			tricks := types.Tricks()
			tricks[0] = "mutated"

			Convey("Then the enumeration should be unaffected", func() {
				So(types.Tricks()[0], ShouldEqual, types.TrickOllie)
			})
		})
	})
}

func TestStatusTransitions(t *testing.T) {
	Convey("Given the lifecycle states", t, func() {
		Convey("Then pending may move to in-progress or failed only", func() {
			So(types.StatusPending.CanTransition(types.StatusInProgress), ShouldBeTrue)
			So(types.StatusPending.CanTransition(types.StatusFailed), ShouldBeTrue)
			So(types.StatusPending.CanTransition(types.StatusCompleted), ShouldBeFalse)
		})

		Convey("Then in-progress may complete or fail", func() {
			So(types.StatusInProgress.CanTransition(types.StatusCompleted), ShouldBeTrue)
			So(types.StatusInProgress.CanTransition(types.StatusFailed), ShouldBeTrue)
			So(types.StatusInProgress.CanTransition(types.StatusPending), ShouldBeFalse)
		})

		Convey("Then terminal states go nowhere", func() {
			for _, terminal := range []types.Status{types.StatusCompleted, types.StatusFailed} {
				So(terminal.Terminal(), ShouldBeTrue)
				for _, next := range []types.Status{types.StatusPending, types.StatusInProgress, types.StatusCompleted, types.StatusFailed} {
					So(terminal.CanTransition(next), ShouldBeFalse)
				}
			}
		})

		Convey("Then parsing accepts known states only", func() {
			st, ok := types.ParseStatus("IN-PROGRESS")
			So(ok, ShouldBeTrue)
			So(st, ShouldEqual, types.StatusInProgress)
			_, ok = types.ParseStatus("done")
			So(ok, ShouldBeFalse)
		})
	})
}
