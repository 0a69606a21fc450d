package queue

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	job1 := Job{JobID: "job1", IssuerID: "acme", Reason: "manual", EnqueuedAt: time.Now()}
	if !q.Enqueue(ctx, job1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	jobChan := q.Dequeue(ctx)
	job := <-jobChan
	if job.JobID != "job1" {
		t.Errorf("expected job1, got %v", job.JobID)
	}
	if job.IssuerID != "acme" {
		t.Errorf("expected acme, got %v", job.IssuerID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, Job{JobID: "job1", IssuerID: "a"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, Job{JobID: "job2", IssuerID: "b"}) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, Job{JobID: "job3", IssuerID: "c"}) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numJobs := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numJobs; j++ {
				job := Job{
					JobID:    fmt.Sprintf("job%d_%d", id, j),
					IssuerID: fmt.Sprintf("issuer%d", id),
					Reason:   "event_ingested",
				}
				for !q.Enqueue(ctx, job) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	consumed := make(chan string, numGoroutines*numJobs)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			jobChan := q.Dequeue(ctx)
			for job := range jobChan {
				consumed <- job.JobID
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Give consumers time to drain
	time.Sleep(100 * time.Millisecond)

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, Job{JobID: "job1", IssuerID: "acme"}) {
		t.Error("expected enqueue to succeed")
	}

	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}

	// Enqueue after close must fail
	if q.Enqueue(ctx, Job{JobID: "job2", IssuerID: "acme"}) {
		t.Error("expected enqueue to fail after close")
	}

	// Remaining jobs are still drained, then the channel closes
	jobChan := q.Dequeue(ctx)
	job, ok := <-jobChan
	if !ok || job.JobID != "job1" {
		t.Errorf("expected to drain job1, got %v (ok=%v)", job.JobID, ok)
	}
	if _, ok := <-jobChan; ok {
		t.Error("expected dequeue channel to be closed after drain")
	}

	// Double close is a no-op
	if err := q.Close(); err != nil {
		t.Errorf("unexpected error on double close: %v", err)
	}
}
