package scrape

import (
    "context"
    "fmt"

    "github.com/sirupsen/logrus"

    "ephemera/internal/enrich"
    "ephemera/internal/events"
    "ephemera/internal/notify"
    "ephemera/internal/queue"
)

// Post-run sweeps stop after this many passes even if events remain without
// coordinates or enrichment; unresolvable records would otherwise loop.
const maxSweepPasses = 20

// Pipeline ties the runner, the sweeps, and the job queue together. Scrape
// runs go through the single-worker queue so they never overlap; sweeps
// triggered by a completed run ride the same queue.
type Pipeline struct {
    runner   *Runner
    enricher *enrich.Enricher
    queue    *queue.Queue
    bus      *events.Bus
    webhook  string
    log      *logrus.Logger
}

func NewPipeline(runner *Runner, enricher *enrich.Enricher, q *queue.Queue, bus *events.Bus, webhook string, log *logrus.Logger) *Pipeline {
    return &Pipeline{runner: runner, enricher: enricher, queue: q, bus: bus, webhook: webhook, log: log}
}

// Start launches the completion listener. The queue itself is started by the
// application so its lifecycle stays in one place.
func (p *Pipeline) Start(ctx context.Context) {
    completions := p.bus.Subscribe()
    go func() {
        for {
            select {
            case <-ctx.Done():
                return
            case done := <-completions:
                if done.Failed {
                    continue
                }
                p.afterRun(ctx, done)
            }
        }
    }()
}

// TriggerRun claims a run and queues its execution. ErrAlreadyRunning passes
// through for the HTTP layer to map to a conflict.
func (p *Pipeline) TriggerRun(ctx context.Context, trigger string) (string, error) {
    runID, err := p.runner.Begin(ctx, trigger)
    if err != nil {
        return "", err
    }
    ok := p.queue.Enqueue(queue.Job{
        ID:   runID,
        Kind: "scrape-run",
        Work: func(jobCtx context.Context) error {
            return p.runner.Execute(jobCtx, runID)
        },
    })
    if !ok {
        p.runner.Abort(ctx, runID, fmt.Errorf("job queue unavailable"))
        return "", fmt.Errorf("could not queue scrape run")
    }
    return runID, nil
}

// Geocode runs one coordinate sweep synchronously.
func (p *Pipeline) Geocode(ctx context.Context) (GeocodeResult, error) {
    return p.runner.GeocodeSweep(ctx)
}

// Enrich runs one description sweep synchronously.
func (p *Pipeline) Enrich(ctx context.Context) (enrich.SweepResult, error) {
    return p.enricher.Sweep(ctx)
}

// afterRun queues the post-run sweeps and fires the completion webhook.
func (p *Pipeline) afterRun(ctx context.Context, done events.Completion) {
    p.queue.Enqueue(queue.Job{
        ID:   done.RunID + "-sweeps",
        Kind: "post-run-sweeps",
        Work: func(jobCtx context.Context) error {
            p.runSweeps(jobCtx)
            return nil
        },
    })
    if err := notify.SendWebhook(ctx, p.webhook, notify.Message{
        Text:          fmt.Sprintf("Scrape run finished: %d events from %d sources", done.EventsScraped, done.Sources),
        RunID:         done.RunID,
        EventsScraped: done.EventsScraped,
    }); err != nil {
        p.log.WithField("error", err.Error()).Warn("completion webhook failed")
    }
}

// runSweeps drains the geocode and enrichment backlogs batch by batch,
// stopping on a pass that makes no progress.
func (p *Pipeline) runSweeps(ctx context.Context) {
    for i := 0; i < maxSweepPasses; i++ {
        res, err := p.runner.GeocodeSweep(ctx)
        if err != nil {
            p.log.WithField("error", err.Error()).Warn("geocode sweep failed")
            break
        }
        if res.Processed == 0 || res.Geocoded == 0 || res.Remaining == 0 {
            break
        }
    }
    for i := 0; i < maxSweepPasses; i++ {
        res, err := p.enricher.Sweep(ctx)
        if err != nil {
            p.log.WithField("error", err.Error()).Warn("enrichment sweep failed")
            break
        }
        if res.Enriched == 0 || res.Remaining == 0 {
            break
        }
    }
}
