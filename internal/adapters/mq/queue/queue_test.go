package queue

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/okian/orbitwatch/internal/domain/model"
)

func job(id int) model.ScanJob {
	return model.ScanJob{JobID: "job-" + strconv.Itoa(id), NoradID: id, ModelVersion: "v1"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job(25544)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.NoradID != 25544 || got.JobID != "job-25544" {
		t.Errorf("unexpected job %+v", got)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job(1)) || !q.Enqueue(ctx, job(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}

	<-q.Dequeue(ctx)
	if !q.Enqueue(ctx, job(3)) {
		t.Error("expected enqueue to succeed after draining one job")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	q.Enqueue(ctx, job(1))

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if q.Enqueue(ctx, job(2)) {
		t.Error("expected enqueue on closed queue to fail")
	}

	// queued jobs drain, then the channel closes
	ch := q.Dequeue(ctx)
	if j, ok := <-ch; !ok || j.NoradID != 1 {
		t.Errorf("expected to drain job 1, got %+v ok=%v", j, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, job(1)) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}

func TestInMemoryQueue_ConcurrentConsumers(t *testing.T) {
	const total = 500
	q := NewInMemoryQueue(WithCapacity(total))
	ctx := context.Background()
	for i := 0; i < total; i++ {
		if !q.Enqueue(ctx, job(i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	_ = q.Close()

	var (
		mu   sync.Mutex
		seen = make(map[int]int)
		wg   sync.WaitGroup
	)
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range q.Dequeue(ctx) {
				mu.Lock()
				seen[j.NoradID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct jobs, got %d", total, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("job %d delivered %d times", id, n)
		}
	}
}
