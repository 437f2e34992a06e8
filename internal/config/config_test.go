package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/orbitwatch/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Seed, convey.ShouldEqual, 42)
			convey.So(cfg.BatchSize, convey.ShouldEqual, 32)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ScoreCacheTTL, convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.DedupeTTL, convey.ShouldEqual, time.Hour)
			convey.So(cfg.MaxAnomalyLimit, convey.ShouldEqual, 100)
			convey.So(cfg.TrainOnStart, convey.ShouldBeTrue)
			convey.So(cfg.VerifyChecksums, convey.ShouldBeFalse)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "orbitwatch")
			convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "anomaly")
			convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsLatencyBuckets, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given invalid configs", t, func() {
		for _, mutate := range []func(*config.Config){
			func(c *config.Config) { c.Addr = "" },
			func(c *config.Config) { c.BatchSize = 0 },
			func(c *config.Config) { c.MaxAnomalyLimit = -1 },
			func(c *config.Config) { c.QueueSize = 0 },
			func(c *config.Config) { c.MetricsNamespace = "" },
			func(c *config.Config) { c.MetricsNamespace = "orbit-watch" },
			func(c *config.Config) { c.MetricsSubsystem = "9lives" },
			func(c *config.Config) { c.MetricsRefreshInterval = 0 },
			func(c *config.Config) { c.MetricsLatencyBuckets = []float64{1, 5, 2} },
		} {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})
}
