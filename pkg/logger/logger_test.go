package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the logger package", t, func() {
		Convey("When Init is called with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get should return a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When Init is called with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "xml")
			})
		})
	})
}

func TestJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When a named logger writes fields", func() {
			Named("lifecycle").Info(ctx, "validation completed",
				String("validationID", "v-1"),
				Int("finalScore", 85),
				Bool("completed", true),
				Duration("took", 2*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then one JSON record should carry every field", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "validation completed")
				So(rec["logger"], ShouldEqual, "lifecycle")
				So(rec["validationID"], ShouldEqual, "v-1")
				So(rec["finalScore"], ShouldEqual, float64(85))
				So(rec["completed"], ShouldEqual, true)
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When named loggers are chained", func() {
			Named("service").Named("lifecycle").Info(ctx, "nested")

			Convey("Then the name should be dotted and appear once", func() {
				line := buf.String()
				So(strings.Count(line, `"logger":`), ShouldEqual, 1)
				So(line, ShouldContainSubstring, `"logger":"service.lifecycle"`)
			})
		})

		Convey("When debug is logged at info level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing should be written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString(" DEBUG "), ShouldBeNil)
			Get().Debug(ctx, "visible")

			Convey("Then debug lines should be written", func() {
				So(strings.Contains(buf.String(), "msg=visible"), ShouldBeTrue)
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Warn(ctx, "quiet")

			Convey("Then warnings should be dropped", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is unknown", func() {
			Convey("Then an error should be returned", func() {
				So(SetLevelString("loud"), ShouldNotBeNil)
			})
		})

		Reset(func() { _ = SetLevelString("info") })
	})
}
