package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/tricktrack/tricktrack/internal/config"
	"github.com/tricktrack/tricktrack/pkg/logger"
)

func testLogger() logger.Logger {
	_ = logger.Init()
	return logger.Get()
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		cfg := config.New()
		cfg.RewardWorkerCount = 2

		convey.Convey("When the service is built and started", func() {
			svc := newService(cfg, testLogger())
			err := svc.Start(context.Background())
			defer svc.Stop()

			convey.Convey("Then it uses the memory backend", func() {
				convey.So(err, convey.ShouldBeNil)
				stats := svc.GetStats()
				convey.So(stats["backend"], convey.ShouldEqual, config.BackendMemory)
				convey.So(stats["minValidators"], convey.ShouldEqual, 3)
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given a sqlite configuration", t, func() {
		cfg := config.New()
		cfg.StoreBackend = config.BackendSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "tricktrack.db")
		cfg.MinValidators = 2

		convey.Convey("When the service is built and started", func() {
			svc := newService(cfg, testLogger())
			err := svc.Start(context.Background())
			defer svc.Stop()

			convey.Convey("Then it uses the sqlite backend", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.GetStats()["backend"], convey.ShouldEqual, config.BackendSQLite)
				convey.So(svc.MinValidators(), convey.ShouldEqual, 2)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler built from configuration", t, func() {
		cfg := config.New()
		cfg.RewardWorkerCount = 1
		log := testLogger()
		svc := newService(cfg, log)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(cfg, svc, log))
		defer srv.Close()

		convey.Convey("Then the API health endpoint responds", func() {
			resp, err := http.Get(srv.URL + "/api/v1/health")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			var body struct {
				Success bool `json:"success"`
				Data    struct {
					Status  string `json:"status"`
					Version string `json:"version"`
				} `json:"data"`
			}
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)
			convey.So(body.Data.Status, convey.ShouldEqual, "ok")
			convey.So(body.Data.Version, convey.ShouldEqual, version)
		})

		convey.Convey("Then the docs routes are mounted", func() {
			for _, path := range []string{"/openapi.yaml", "/api/docs"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				_ = resp.Body.Close()
			}
		})

		convey.Convey("Then a submission can be created", func() {
			resp, err := http.Post(srv.URL+"/api/v1/validations", "application/json",
				strings.NewReader(`{"skaterId":"sk-1","trickType":"kickflip","videoUrl":"https://v/1.mp4"}`))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
