package main

import (
	"bytes"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestRootCmd(t *testing.T) {
	convey.Convey("Given the tricksim command", t, func() {
		cmd := newRootCmd()

		convey.Convey("Then its flags should carry defaults", func() {
			n, err := cmd.Flags().GetInt("submissions")
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, defaultSubmissions)

			url, err := cmd.Flags().GetString("url")
			convey.So(err, convey.ShouldBeNil)
			convey.So(url, convey.ShouldEqual, "http://localhost:9080")
		})

		convey.Convey("When run with an invalid submission count", func() {
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs([]string{"--submissions", "0"})
			err := cmd.Execute()

			convey.Convey("Then it should fail before contacting the service", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "submissions must be positive")
			})
		})
	})
}
