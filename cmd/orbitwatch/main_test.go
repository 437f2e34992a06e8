package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/orbitwatch/internal/app"
	"github.com/okian/orbitwatch/internal/config"
	"github.com/okian/orbitwatch/internal/domain/anomaly"
	"github.com/okian/orbitwatch/internal/orbittest"
	"github.com/okian/orbitwatch/pkg/logger"
	"github.com/okian/orbitwatch/pkg/metrics"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// writeOutlierCatalog writes nine co-located GEO satellites and one
// satellite with a LEO mean motion as 2LE text.
func writeOutlierCatalog(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < 9; i++ {
		l1, l2 := orbittest.Lines(orbittest.GEO(40000 + i))
		b.WriteString(l1 + "\n" + l2 + "\n")
	}
	outlier := orbittest.GEO(50000)
	outlier.MeanMotion = 15.0
	l1, l2 := orbittest.Lines(outlier)
	b.WriteString(l1 + "\n" + l2 + "\n")

	path := filepath.Join(t.TempDir(), "catalog.tle")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := rootCommand()

		convey.Convey("Then it should expose serve and scan", func() {
			names := make([]string, 0, len(root.Commands()))
			for _, c := range root.Commands() {
				names = append(names, c.Name())
			}
			convey.So(names, convey.ShouldContain, "serve")
			convey.So(names, convey.ShouldContain, "scan")
		})

		convey.Convey("Then scan should require a catalog", func() {
			root.SetArgs([]string{"scan"})
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			convey.So(root.ExecuteContext(context.Background()), convey.ShouldNotBeNil)
		})
	})
}

func TestRunScan(t *testing.T) {
	convey.Convey("Given a catalog with one outlier", t, func() {
		ctx := context.Background()
		path := writeOutlierCatalog(t)
		flags := scanFlags{catalog: path, top: 3, seed: 3, batchSize: 32, format: "table"}

		convey.Convey("When printing a table", func() {
			var out bytes.Buffer
			err := runScan(ctx, &out, flags)

			convey.Convey("Then the outlier should be ranked first", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				convey.So(lines, convey.ShouldHaveLength, 4)
				convey.So(lines[0], convey.ShouldStartWith, "RANK")
				convey.So(strings.Fields(lines[1])[1], convey.ShouldEqual, "50000")
			})
		})

		convey.Convey("When printing JSON", func() {
			flags.format = "json"
			var out bytes.Buffer
			convey.So(runScan(ctx, &out, flags), convey.ShouldBeNil)

			convey.Convey("Then it should decode to ranked scores", func() {
				var scores []anomaly.Score
				convey.So(json.Unmarshal(out.Bytes(), &scores), convey.ShouldBeNil)
				convey.So(scores, convey.ShouldHaveLength, 3)
				convey.So(scores[0].NoradID, convey.ShouldEqual, 50000)
				convey.So(scores[0].RiskScore, convey.ShouldBeGreaterThan, scores[1].RiskScore)
			})
		})

		convey.Convey("When running through cobra", func() {
			root := rootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(io.Discard)
			root.SetArgs([]string{"scan", "--catalog", path, "--top", "1", "--seed", "3", "--format", "json"})
			err := root.ExecuteContext(ctx)
			// scan re-initialises the global logger
			_ = logger.Init(logger.WithOutput(io.Discard))

			convey.Convey("Then the flags should reach the scan", func() {
				convey.So(err, convey.ShouldBeNil)
				var scores []anomaly.Score
				convey.So(json.Unmarshal(out.Bytes(), &scores), convey.ShouldBeNil)
				convey.So(scores, convey.ShouldHaveLength, 1)
				convey.So(scores[0].NoradID, convey.ShouldEqual, 50000)
			})
		})

		convey.Convey("When the format is unknown", func() {
			flags.format = "xml"
			err := runScan(ctx, io.Discard, flags)
			convey.So(errors.Is(err, errUnknownFormat), convey.ShouldBeTrue)
		})

		convey.Convey("When the catalog is missing", func() {
			flags.catalog = filepath.Join(t.TempDir(), "missing.tle")
			convey.So(runScan(ctx, io.Discard, flags), convey.ShouldNotBeNil)
		})
	})
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given a configuration with a catalog", t, func() {
		cfg := config.New()
		cfg.CatalogPath = writeOutlierCatalog(t)
		cfg.WorkerCount = 2
		cfg.QueueSize = 100
		cfg.Seed = 3
		cfg.TrainOnStart = true

		convey.Convey("When building and starting the service", func() {
			svc := service.New(serviceOptions(cfg, logger.Nop())...)
			defer svc.Stop()
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)

			convey.Convey("Then it should load the catalog and train", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				st, err := svc.WaitForTraining(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(st.State, convey.ShouldEqual, service.TrainingSucceeded)

				stats := svc.GetStats()
				convey.So(stats["catalogRecords"], convey.ShouldEqual, 10)
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
			})
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given a configuration with custom metrics settings", t, func() {
		cfg := config.New()
		cfg.MetricsNamespace = "sat"
		cfg.MetricsRefreshInterval = 250 * time.Millisecond
		cfg.MetricsLatencyBuckets = []float64{1, 10, 100}

		convey.Convey("When the global manager is configured from it", func() {
			metrics.Configure(metricsOptions(cfg)...)
			defer metrics.Configure()

			convey.Convey("Then the refresh interval and names should follow", func() {
				convey.So(metrics.Default().RefreshInterval(), convey.ShouldEqual, 250*time.Millisecond)
				metrics.UpdateCatalogSize(3)
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				convey.So(names, convey.ShouldContain, "sat_anomaly_catalog_records")
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then they should return once the context is done", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			svc := service.New()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updaters did not stop")
			}
		})

		convey.Convey("Then single updates should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(service.New()) }, convey.ShouldNotPanic)
		})
	})
}
