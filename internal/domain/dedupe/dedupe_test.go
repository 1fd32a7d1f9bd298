package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tricktrack/tricktrack/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	for _, maxSize := range []int{100, 0} {
		Convey(fmt.Sprintf("Given a deduper with max size %d", maxSize), t, func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(maxSize))

			Convey("When a validation ID is recorded for the first time", func() {
				seen := d.SeenAndRecord(ctx, "v-1")

				Convey("Then it should be reported as new", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})

				Convey("Then a second record should be reported as seen", func() {
					So(d.SeenAndRecord(ctx, "v-1"), ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})

				Convey("Then unrecording should allow a retry", func() {
					d.Unrecord(ctx, "v-1")
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "v-1"), ShouldBeFalse)
				})
			})

			Convey("When an unknown ID is unrecorded", func() {
				d.Unrecord(ctx, "missing")

				Convey("Then nothing should change", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})

			Convey("When many goroutines race on the same ID", func() {
				var fresh atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 50; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						if !d.SeenAndRecord(ctx, "contested") {
							fresh.Add(1)
						}
					}()
				}
				wg.Wait()

				Convey("Then exactly one should win", func() {
					So(fresh.Load(), ShouldEqual, 1)
				})
			})
		})
	}

	Convey("Given a deduper bounded to three IDs", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When four IDs are recorded", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				d.SeenAndRecord(ctx, id)
			}

			Convey("Then the oldest should be forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})
	})
}
