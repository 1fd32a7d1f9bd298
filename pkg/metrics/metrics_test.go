package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func gathered(reg prometheus.Gatherer, name string) (float64, bool) {
	families, err := reg.Gather()
	if err != nil {
		return 0, false
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return sum, true
	}
	return 0, false
}

func TestNewManager(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("lifecycle"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.scoresAccepted.Inc()

			Convey("Then metrics should use the configured names", func() {
				v, ok := gathered(registry, "test_lifecycle_scores_accepted_total")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global registry", t, func() {
		reg := GetRegistry()

		Convey("When lifecycle helpers are called", func() {
			before, _ := gathered(reg, "tricktrack_validation_completed_total")
			tokensBefore, _ := gathered(reg, "tricktrack_validation_tokens_awarded_total")
			RecordValidationCreated("kickflip")
			RecordScoreAccepted()
			RecordScoreRejected("self_validation")
			RecordValidationCompleted("kickflip", 85, 85)
			RecordValidationFailed()

			Convey("Then the counters should move", func() {
				after, ok := gathered(reg, "tricktrack_validation_completed_total")
				So(ok, ShouldBeTrue)
				So(after-before, ShouldEqual, 1)
				tokens, _ := gathered(reg, "tricktrack_validation_tokens_awarded_total")
				So(tokens-tokensBefore, ShouldEqual, 85)
			})
		})

		Convey("When gauges are set", func() {
			UpdateRewardQueueSize(7)
			UpdateRewardQueueCapacity(64)
			UpdateWorkerCount(4)
			UpdateStoreRecords(12)

			Convey("Then the registry should report the last value", func() {
				v, _ := gathered(reg, "tricktrack_validation_reward_queue_size")
				So(v, ShouldEqual, 7)
				v, _ = gathered(reg, "tricktrack_validation_reward_worker_count")
				So(v, ShouldEqual, 4)
				v, _ = gathered(reg, "tricktrack_validation_store_records")
				So(v, ShouldEqual, 12)
			})
		})

		Convey("When badges and validator bonuses are recorded", func() {
			badgesBefore, _ := gathered(reg, "tricktrack_validation_badges_awarded_total")
			bonusBefore, _ := gathered(reg, "tricktrack_validation_validator_bonus_tokens_total")
			RecordBadgeAwarded("gold")
			RecordBadgeAwarded("bronze")
			RecordValidatorBonus(5)
			RecordValidatorBonus(5)

			Convey("Then both tiers and the bonus tokens should be counted", func() {
				badges, ok := gathered(reg, "tricktrack_validation_badges_awarded_total")
				So(ok, ShouldBeTrue)
				So(badges-badgesBefore, ShouldEqual, 2)
				bonus, _ := gathered(reg, "tricktrack_validation_validator_bonus_tokens_total")
				So(bonus-bonusBefore, ShouldEqual, 10)
			})
		})

		Convey("When the remaining helpers are called", func() {
			Convey("Then none of them should panic", func() {
				So(func() {
					RecordStoreLatency("memory", "get", 0.2)
					RecordStoreConflict("sqlite")
					RecordRewardEnqueue()
					RecordRewardEnqueueError("full")
					RecordRewardCredited(10)
					RecordRewardDuplicate()
					RecordRewardError()
					RecordHTTPRequest("/api/v1/validations", "POST", "201")
					RecordHTTPRequestDuration("/api/v1/validations", "POST", "201", 1.5)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})
	})
}
