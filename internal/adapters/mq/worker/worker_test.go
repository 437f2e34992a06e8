package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/orbitwatch/internal/adapters/mq/queue"
	"github.com/okian/orbitwatch/internal/adapters/repository"
	worker "github.com/okian/orbitwatch/internal/adapters/mq/worker"
	"github.com/okian/orbitwatch/internal/domain/anomaly"
	model "github.com/okian/orbitwatch/internal/domain/model"
	logging "github.com/okian/orbitwatch/pkg/logger"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 64)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockScorer struct {
	mu      sync.RWMutex
	version string
	errors  map[int]error
}

func newMockScorer(version string) *mockScorer {
	return &mockScorer{version: version, errors: make(map[int]error)}
}

func (ms *mockScorer) ScoreByID(ctx context.Context, noradID int) (anomaly.Score, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if err, ok := ms.errors[noradID]; ok {
		return anomaly.Score{}, err
	}
	risk := float64(noradID%99) + 1
	return anomaly.Score{NoradID: noradID, RiskScore: risk, Level: anomaly.LevelFor(risk), ModelVersion: ms.version}, nil
}

func (ms *mockScorer) setError(id int, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[id] = err
}

type mockUpdater struct {
	mu     sync.Mutex
	scores map[int]anomaly.Score
	err    error
}

func newMockUpdater() *mockUpdater {
	return &mockUpdater{scores: make(map[int]anomaly.Score)}
}

func (mu *mockUpdater) Upsert(ctx context.Context, s anomaly.Score) error {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	if mu.err != nil {
		return mu.err
	}
	mu.scores[s.NoradID] = s
	return nil
}

func (mu *mockUpdater) has(id int) bool {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	_, ok := mu.scores[id]
	return ok
}

func (mu *mockUpdater) count() int {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	return len(mu.scores)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init(logging.WithOutput(io.Discard))

		q := newMockQueue()
		scorer := newMockScorer("v1")
		updater := newMockUpdater()

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, scorer, updater, worker.WithName("test-worker"), worker.WithLogger(logging.Nop()))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, scorer, updater)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And when processing a job", func() {
				q.jobs <- model.ScanJob{JobID: "job-1", NoradID: 25544, ModelVersion: "v1"}
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it should update the board", func() {
					convey.So(updater.has(25544), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when scoring fails", func() {
				scorer.setError(7, errors.New("boom"))
				q.jobs <- model.ScanJob{JobID: "job-7", NoradID: 7, ModelVersion: "v1"}
				q.jobs <- model.ScanJob{JobID: "job-8", NoradID: 8, ModelVersion: "v1"}
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it should skip the job and keep going", func() {
					convey.So(updater.has(7), convey.ShouldBeFalse)
					convey.So(updater.has(8), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when the job targets a replaced model", func() {
				q.jobs <- model.ScanJob{JobID: "job-9", NoradID: 9, ModelVersion: "v0"}
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it should not update the board", func() {
					convey.So(updater.has(9), convey.ShouldBeFalse)
				})
			})

			convey.Convey("And when the board has moved to a newer model", func() {
				updater.mu.Lock()
				updater.err = fmt.Errorf("norad 11: %w", repository.ErrStaleScore)
				updater.mu.Unlock()
				q.jobs <- model.ScanJob{JobID: "job-11", NoradID: 11, ModelVersion: "v1"}
				q.jobs <- model.ScanJob{JobID: "job-12", NoradID: 12, ModelVersion: "v1"}
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the jobs should be dropped without stopping the worker", func() {
					convey.So(updater.count(), convey.ShouldEqual, 0)
					updater.mu.Lock()
					updater.err = nil
					updater.mu.Unlock()
					q.jobs <- model.ScanJob{JobID: "job-13", NoradID: 13, ModelVersion: "v1"}
					time.Sleep(50 * time.Millisecond)
					convey.So(updater.has(13), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when updating fails", func() {
				updater.mu.Lock()
				updater.err = errors.New("board down")
				updater.mu.Unlock()
				q.jobs <- model.ScanJob{JobID: "job-10", NoradID: 10, ModelVersion: "v1"}
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then nothing should be recorded", func() {
					convey.So(updater.count(), convey.ShouldEqual, 0)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
				defer done()

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				})

				convey.Convey("Then a second shutdown should be harmless", func() {
					convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
					convey.So(func() { _ = w.Shutdown(shutdownCtx) }, convey.ShouldNotPanic)
				})
			})
		})

		convey.Convey("When the queue closes", func() {
			w := worker.NewInMemoryWorker(q, scorer, updater)
			finished := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(finished)
			}()
			_ = q.Close()

			convey.Convey("Then the worker should stop", func() {
				select {
				case <-finished:
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new worker pool", t, func() {
		_ = logging.Init(logging.WithOutput(io.Discard))

		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		scorer := newMockScorer("v1")
		updater := newMockUpdater()

		convey.Convey("When creating a pool with the default count", func() {
			pool := worker.NewPool(0, q, scorer, updater)

			convey.Convey("Then it should have at least one worker", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When processing many jobs", func() {
			pool := worker.NewPool(4, q, scorer, updater)
			pool.Start(context.Background())
			for i := 1; i <= 100; i++ {
				convey.So(q.Enqueue(context.Background(), model.ScanJob{NoradID: i, ModelVersion: "v1"}), convey.ShouldBeTrue)
			}

			convey.Convey("Then shutdown should drain every job", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(updater.count(), convey.ShouldEqual, 100)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When stopping a started pool", func() {
			pool := worker.NewPool(2, q, scorer, updater)
			pool.Start(context.Background())

			convey.Convey("Then Stop should return", func() {
				stopped := make(chan struct{})
				go func() {
					pool.Stop()
					close(stopped)
				}()
				select {
				case <-stopped:
				case <-time.After(2 * time.Second):
					t.Fatal("pool did not stop")
				}
			})

			convey.Convey("Then stopping twice and shutting down should not panic", func() {
				convey.So(pool.Stop, convey.ShouldNotPanic)
				convey.So(pool.Stop, convey.ShouldNotPanic)
				convey.So(func() { _ = pool.Shutdown(context.Background()) }, convey.ShouldNotPanic)
			})
		})
	})
}
