package queue

import (
    "context"
    "sync/atomic"
    "testing"
    "time"

    "ephemera/internal/logging"
)

func testQueue(capacity, workers int, timeout time.Duration) *Queue {
    return New(capacity, workers, timeout, logging.New("test", "error"))
}

func TestQueueProcessesJob(t *testing.T) {
    q := testQueue(10, 1, time.Second)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    q.Start(ctx)

    var processed int32
    done := make(chan struct{})
    ok := q.Enqueue(Job{
        ID:   "job1",
        Kind: "scrape",
        Work: func(ctx context.Context) error {
            atomic.AddInt32(&processed, 1)
            close(done)
            return nil
        },
    })
    if !ok {
        t.Fatalf("expected enqueue to succeed")
    }

    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatalf("job did not complete")
    }
    if atomic.LoadInt32(&processed) != 1 {
        t.Fatalf("job not processed")
    }
}

func TestQueueBounded(t *testing.T) {
    q := testQueue(1, 0, 100*time.Millisecond)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    q.Start(ctx)

    ok := q.Enqueue(Job{ID: "slow", Kind: "scrape", Work: func(ctx context.Context) error {
        <-ctx.Done()
        return ctx.Err()
    }})
    if !ok {
        t.Fatalf("expected first enqueue to succeed")
    }

    if ok := q.Enqueue(Job{ID: "drop", Kind: "scrape", Work: func(ctx context.Context) error { return nil }}); ok {
        t.Fatalf("expected enqueue to be rejected when queue is full")
    }
}

func TestEnqueueWithRetryDropsWhenFull(t *testing.T) {
    q := testQueue(1, 0, time.Second)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    q.Start(ctx)

    first := q.Enqueue(Job{ID: "first", Kind: "scrape", Work: func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }})
    if !first {
        t.Fatalf("expected initial enqueue to succeed")
    }

    enqueued, dropped := q.EnqueueWithRetry(ctx, Job{ID: "retry", Kind: "sweep", Work: func(ctx context.Context) error { return nil }}, 200*time.Millisecond, 50*time.Millisecond)
    if enqueued {
        t.Fatalf("expected enqueue to fail due to full queue")
    }
    if !dropped {
        t.Fatalf("expected enqueue to be reported as dropped after retries")
    }
}

func TestEnqueueAfterStopRejected(t *testing.T) {
    q := testQueue(2, 1, time.Second)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    q.Start(ctx)
    q.Stop(context.Background())

    // The jobs channel is closed at this point; a send would panic.
    if ok := q.Enqueue(Job{ID: "late", Kind: "scrape", Work: func(ctx context.Context) error { return nil }}); ok {
        t.Fatalf("expected enqueue after stop to fail")
    }
    if q.Healthy() {
        t.Fatalf("queue must not report healthy after stop")
    }
}

func TestQueueNotStarted(t *testing.T) {
    q := testQueue(1, 1, time.Second)
    if ok := q.Enqueue(Job{ID: "early", Kind: "scrape", Work: func(ctx context.Context) error { return nil }}); ok {
        t.Fatalf("expected enqueue before start to fail")
    }
    if q.Healthy() {
        t.Fatalf("queue must not report healthy before start")
    }
}
