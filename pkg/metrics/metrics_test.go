package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the default namespace and refresh interval", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "orbitwatch")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(3*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
			})

			Convey("And the metrics are registered on the supplied registry", func() {
				manager.trainingLoss.Set(0.5)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_sub_training_loss")
			})
		})

		Convey("When options carry empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-time.Second),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "orbitwatch")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		m := Default()

		Convey("When recording training metrics", func() {
			before := testutil.ToFloat64(m.trainingRuns.WithLabelValues("succeeded"))
			RecordTrainingRun("succeeded")
			RecordTrainingDuration(1500 * time.Millisecond)
			UpdateTrainingLoss(0.0125)
			UpdateTrainingRecords(42)
			SetModelReady(true)

			Convey("Then the values are visible", func() {
				So(testutil.ToFloat64(m.trainingRuns.WithLabelValues("succeeded")), ShouldEqual, before+1)
				So(testutil.ToFloat64(m.trainingLoss), ShouldEqual, 0.0125)
				So(testutil.ToFloat64(m.trainingRecords), ShouldEqual, 42)
				So(testutil.ToFloat64(m.modelReady), ShouldEqual, 1)
			})

			Convey("And readiness can be cleared", func() {
				SetModelReady(false)
				So(testutil.ToFloat64(m.modelReady), ShouldEqual, 0)
			})
		})

		Convey("When recording scoring metrics", func() {
			before := testutil.ToFloat64(m.scoresByLevel.WithLabelValues("Critical"))
			RecordScore("Critical")
			RecordScoringError("not_trained")
			RecordScoringLatency(3)
			RecordScoreCacheHit()

			Convey("Then the level counter moves", func() {
				So(testutil.ToFloat64(m.scoresByLevel.WithLabelValues("Critical")), ShouldEqual, before+1)
				So(testutil.ToFloat64(m.scoringErrors.WithLabelValues("not_trained")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording queue, worker and HTTP metrics", func() {
			So(func() {
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("queue_full")
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordHTTPRequest("score", "GET", "200")
				RecordHTTPRequestDuration("score", "GET", "200", 1.5)
				RecordErrorByEndpoint("score", "GET", "not_found")
				UpdateCatalogSize(12)
				UpdateBoardSize(3)
				RecordScanJobSkipped()
				AddDroppedRecords(2)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 100)
			So(testutil.ToFloat64(m.catalogSize), ShouldEqual, 12)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		m := Default()
		before := testutil.ToFloat64(m.queueEnqueued)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordQueueEnqueue()
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(m.queueEnqueued), ShouldEqual, before+1600)
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a reconfigured global manager", t, func() {
		before := GetRegistry()
		Configure(WithNamespace("sat"), WithSubsystem("board"), WithRefreshInterval(2*time.Second))
		defer Configure()

		Convey("Then recorders should export under the new names", func() {
			So(GetRegistry(), ShouldNotPointTo, before)
			So(Default().RefreshInterval(), ShouldEqual, 2*time.Second)

			UpdateBoardSize(4)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, "sat_board_board_records")
			So(testutil.ToFloat64(Default().boardSize), ShouldEqual, 4)
		})
	})
}
