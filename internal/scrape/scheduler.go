package scrape

import (
    "context"
    "time"

    "github.com/sirupsen/logrus"

    "ephemera/internal/store"
)

// checkEvery is how often the scheduler looks at the completion marker. The
// marker itself decides whether a run is due.
const checkEvery = 15 * time.Minute

// Scheduler triggers a scrape run whenever the last completed run is older
// than the configured interval. A store that has never completed a run is
// treated as immediately due.
type Scheduler struct {
    pipeline *Pipeline
    store    store.Store
    interval time.Duration
    log      *logrus.Logger
}

func NewScheduler(pipeline *Pipeline, st store.Store, interval time.Duration, log *logrus.Logger) *Scheduler {
    return &Scheduler{pipeline: pipeline, store: st, interval: interval, log: log}
}

func (s *Scheduler) Run(ctx context.Context) {
    ticker := time.NewTicker(checkEvery)
    defer ticker.Stop()

    s.tick(ctx)
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            s.tick(ctx)
        }
    }
}

func (s *Scheduler) tick(ctx context.Context) {
    last, err := s.store.GetLastCompleted(ctx)
    if err == nil && time.Since(last) < s.interval {
        return
    }
    if err != nil && err != store.ErrNotFound {
        s.log.WithField("error", err.Error()).Warn("completion marker read failed")
        return
    }

    runID, err := s.pipeline.TriggerRun(ctx, "scheduled")
    switch err {
    case nil:
        s.log.WithField("run_id", runID).Info("scheduled scrape run queued")
    case ErrAlreadyRunning:
        // Another trigger beat us to it.
    default:
        s.log.WithField("error", err.Error()).Warn("scheduled run failed to queue")
    }
}
