package queue

import (
    "context"
    "sync"
    "sync/atomic"
    "time"

    "github.com/sirupsen/logrus"
)

// Job encapsulates a unit of pipeline work (a scrape run or a sweep).
type Job struct {
    ID       string
    Kind     string
    Work     func(context.Context) error
    OnFinish func(error)
}

// Stats exposes current queue metrics.
type Stats struct {
    Length      int
    Capacity    int
    WorkerCount int
    Processed   uint64
    Failed      uint64
}

// Queue is a bounded job queue with a fixed worker pool. The pipeline runs
// with a single worker so scrape runs and sweeps never overlap.
type Queue struct {
    jobs        chan Job
    workerCount int
    timeout     time.Duration
    started     bool
    mu          sync.RWMutex
    wg          sync.WaitGroup
    processed   uint64
    failed      uint64
    log         *logrus.Logger
}

// New creates a Queue with the provided capacity, worker count, and per-job timeout.
func New(capacity, workerCount int, timeout time.Duration, log *logrus.Logger) *Queue {
    return &Queue{
        jobs:        make(chan Job, capacity),
        workerCount: workerCount,
        timeout:     timeout,
        log:         log,
    }
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
    q.mu.Lock()
    if q.started {
        q.mu.Unlock()
        return
    }
    q.started = true
    q.mu.Unlock()
    for i := 0; i < q.workerCount; i++ {
        q.wg.Add(1)
        go q.worker(ctx)
    }
}

// Enqueue attempts to queue a job without blocking. Returns false if the
// queue is full or not started.
func (q *Queue) Enqueue(j Job) bool {
    return q.tryEnqueue(j, true)
}

// EnqueueWithRetry attempts to queue a job within a bounded retry window.
// Returns (enqueued, droppedFull).
func (q *Queue) EnqueueWithRetry(ctx context.Context, j Job, window, interval time.Duration) (bool, bool) {
    deadline := time.Now().Add(window)
    if q.tryEnqueue(j, false) {
        return true, false
    }
    for time.Now().Before(deadline) {
        select {
        case <-ctx.Done():
            return false, false
        case <-time.After(interval):
            if q.tryEnqueue(j, false) {
                return true, false
            }
        }
    }
    return false, true
}

func (q *Queue) tryEnqueue(j Job, logDrop bool) bool {
    // The read lock is held across the send so Stop cannot close the
    // channel between the started check and the send.
    q.mu.RLock()
    defer q.mu.RUnlock()
    if !q.started {
        if logDrop {
            q.log.WithField("job", j.ID).Warn("enqueue on stopped queue")
        }
        return false
    }
    select {
    case q.jobs <- j:
        return true
    default:
        if logDrop {
            q.log.WithField("job", j.ID).Warn("job queue full, dropping job")
        }
        return false
    }
}

// Stop stops accepting new jobs and waits for workers to drain until the
// context is done.
func (q *Queue) Stop(ctx context.Context) {
    q.mu.Lock()
    if !q.started {
        q.mu.Unlock()
        return
    }
    q.started = false
    if q.jobs != nil {
        close(q.jobs)
    }
    q.mu.Unlock()

    done := make(chan struct{})
    go func() {
        q.wg.Wait()
        close(done)
    }()

    select {
    case <-done:
    case <-ctx.Done():
    }
}

// Stats returns current queue metrics.
func (q *Queue) Stats() Stats {
    q.mu.RLock()
    defer q.mu.RUnlock()
    length := 0
    if q.jobs != nil {
        length = len(q.jobs)
    }
    return Stats{
        Length:      length,
        Capacity:    cap(q.jobs),
        WorkerCount: q.workerCount,
        Processed:   atomic.LoadUint64(&q.processed),
        Failed:      atomic.LoadUint64(&q.failed),
    }
}

func (q *Queue) worker(ctx context.Context) {
    defer q.wg.Done()
    for {
        select {
        case <-ctx.Done():
            return
        case j, ok := <-q.jobs:
            if !ok {
                return
            }
            q.handleJob(ctx, j)
        }
    }
}

func (q *Queue) handleJob(ctx context.Context, j Job) {
    start := time.Now()
    defer func() {
        if r := recover(); r != nil {
            q.log.WithFields(logrus.Fields{"job": j.ID, "panic": r}).Error("job panic recovered")
        }
    }()

    jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
    err := j.Work(jobCtx)
    cancel()
    if j.OnFinish != nil {
        j.OnFinish(err)
    }
    atomic.AddUint64(&q.processed, 1)
    status := "success"
    if err != nil {
        atomic.AddUint64(&q.failed, 1)
        status = err.Error()
    }
    q.log.WithFields(logrus.Fields{
        "kind":        j.Kind,
        "job":         j.ID,
        "duration_ms": time.Since(start).Milliseconds(),
        "status":      status,
    }).Info("job finished")
}

// Healthy returns true if the queue has been started.
func (q *Queue) Healthy() bool {
    q.mu.RLock()
    defer q.mu.RUnlock()
    return q.started
}
