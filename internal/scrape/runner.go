package scrape

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "ephemera/internal/config"
    "ephemera/internal/events"
    "ephemera/internal/extract"
    "ephemera/internal/journal"
    "ephemera/internal/location"
    "ephemera/internal/metrics"
    "ephemera/internal/store"
    "ephemera/internal/temporal"
)

// ErrAlreadyRunning rejects a run request while a fresh run is active.
var ErrAlreadyRunning = errors.New("scraping already in progress")

// Runner owns one scrape pass over the source list: fetch, extract,
// normalize, resolve, merge, filter, persist, publish progress. Sources are
// processed strictly one at a time; every external rate limit is honored by
// construction.
type Runner struct {
    cfg       config.Config
    store     store.Store
    journal   *journal.Journal
    scraper   *extract.Scraper
    extractor *extract.Extractor
    resolver  *location.Resolver
    bus       *events.Bus
    log       *logrus.Logger

    admitMu   sync.Mutex
    sourcesMu sync.RWMutex
    sources   []string

    // now is swappable for tests.
    now func() time.Time
}

func NewRunner(cfg config.Config, st store.Store, jnl *journal.Journal, scraper *extract.Scraper, extractor *extract.Extractor, resolver *location.Resolver, bus *events.Bus, sources []string, log *logrus.Logger) *Runner {
    return &Runner{
        cfg:       cfg,
        store:     st,
        journal:   jnl,
        scraper:   scraper,
        extractor: extractor,
        resolver:  resolver,
        bus:       bus,
        sources:   sources,
        log:       log,
        now:       time.Now,
    }
}

// SetSources swaps the source list, used by the config watcher.
func (r *Runner) SetSources(sources []string) {
    r.sourcesMu.Lock()
    defer r.sourcesMu.Unlock()
    r.sources = sources
}

func (r *Runner) Sources() []string {
    r.sourcesMu.RLock()
    defer r.sourcesMu.RUnlock()
    return append([]string(nil), r.sources...)
}

// Begin performs admission control and claims the run by writing the initial
// status document. A running job with a heartbeat younger than the staleness
// threshold rejects the request; an older heartbeat is treated as abandoned
// and superseded.
func (r *Runner) Begin(ctx context.Context, trigger string) (string, error) {
    r.admitMu.Lock()
    defer r.admitMu.Unlock()

    status, err := r.store.GetStatus(ctx)
    if err == nil && status.IsRunning {
        lastUpdate, parseErr := time.Parse(time.RFC3339, status.LastUpdate)
        if parseErr == nil && r.now().Sub(lastUpdate) < r.cfg.StaleRunAfter {
            return "", ErrAlreadyRunning
        }
        r.log.WithField("last_update", status.LastUpdate).Warn("superseding stale scrape run")
    } else if err != nil && err != store.ErrNotFound {
        // A broken status read must not wedge scraping forever.
        r.log.WithField("error", err.Error()).Warn("status check failed, starting anyway")
    }

    sources := r.Sources()
    runID := journal.NewRunID()
    if err := r.journal.StartRun(ctx, runID, trigger, len(sources), config.Now()); err != nil {
        r.log.WithField("error", err.Error()).Warn("journal start failed")
    }
    if err := r.store.SetStatus(ctx, events.Status{
        IsRunning:    true,
        TotalSources: len(sources),
        LastUpdate:   r.now().UTC().Format(time.RFC3339),
    }); err != nil {
        return "", fmt.Errorf("claim run: %w", err)
    }
    r.log.WithFields(logrus.Fields{"run_id": runID, "trigger": trigger, "sources": len(sources)}).Info("scrape run starting")
    return runID, nil
}

// Execute runs the per-source loop for a run claimed by Begin. Source
// failures are isolated: recorded, counted, skipped. A failed incremental
// save is also non-fatal since the next successful save catches up.
func (r *Runner) Execute(ctx context.Context, runID string) error {
    sources := r.Sources()
    existing := r.loadExisting(ctx)

    totalNew := 0
    var errList []string

    for i, source := range sources {
        r.setStatus(ctx, events.Status{
            IsRunning:        true,
            CurrentSource:    source,
            SourcesCompleted: i,
            TotalSources:     len(sources),
            EventsScraped:    totalNew,
            LastUpdate:       r.now().UTC().Format(time.RFC3339),
            Errors:           events.BoundErrors(errList),
        })

        candidates, err := r.processSource(ctx, source)
        metrics.SourcesScraped.Inc()
        if err != nil {
            msg := fmt.Sprintf("%s: %v", truncateSource(source), err)
            errList = append(errList, msg)
            metrics.SourceFailures.Inc()
            if jerr := r.journal.RecordSourceError(ctx, runID, source, err.Error(), config.Now()); jerr != nil {
                r.log.WithField("error", jerr.Error()).Warn("journal error write failed")
            }
            r.log.WithFields(logrus.Fields{"run_id": runID, "source": source, "error": err.Error()}).Warn("source skipped")
            continue
        }

        totalNew += len(candidates)
        metrics.EventsExtracted.Add(float64(len(candidates)))

        existing = events.Merge(existing, candidates)
        active := events.FilterStale(existing, temporal.Today(r.now()))
        if err := r.persist(ctx, active); err != nil {
            r.log.WithFields(logrus.Fields{"run_id": runID, "error": err.Error()}).Warn("incremental save failed")
        } else {
            existing = active
        }
        if err := r.journal.UpdateProgress(ctx, runID, i+1, totalNew); err != nil {
            r.log.WithField("error", err.Error()).Warn("journal progress write failed")
        }
        r.log.WithFields(logrus.Fields{"run_id": runID, "source": source, "events": len(candidates), "stored": len(existing)}).Info("source complete")
    }

    r.setStatus(ctx, events.Status{
        IsRunning:        false,
        SourcesCompleted: len(sources),
        TotalSources:     len(sources),
        EventsScraped:    totalNew,
        LastUpdate:       r.now().UTC().Format(time.RFC3339),
        Errors:           events.BoundErrors(errList),
    })
    if err := r.store.SetLastCompleted(ctx, r.now().UTC()); err != nil {
        r.log.WithField("error", err.Error()).Warn("completion timestamp write failed")
    }
    if err := r.journal.FinishRun(ctx, runID, journal.StatusCompleted, len(sources), totalNew, "", config.Now()); err != nil {
        r.log.WithField("error", err.Error()).Warn("journal finish failed")
    }
    metrics.RunsFinished.WithLabelValues(journal.StatusCompleted).Inc()
    metrics.EventsStored.Set(float64(len(existing)))

    r.log.WithFields(logrus.Fields{"run_id": runID, "events_scraped": totalNew, "stored": len(existing)}).Info("scrape run complete")
    r.bus.Publish(events.Completion{RunID: runID, EventsScraped: totalNew, Sources: len(sources)})
    return nil
}

// Abort marks a claimed run failed before its loop ran, used when the queue
// drops the job.
func (r *Runner) Abort(ctx context.Context, runID string, cause error) {
    msg := ""
    if cause != nil {
        msg = cause.Error()
    }
    r.setStatus(ctx, events.Status{
        IsRunning:  false,
        LastUpdate: r.now().UTC().Format(time.RFC3339),
        Error:      msg,
    })
    if err := r.journal.FinishRun(ctx, runID, journal.StatusFailed, 0, 0, msg, config.Now()); err != nil {
        r.log.WithField("error", err.Error()).Warn("journal finish failed")
    }
    metrics.RunsFinished.WithLabelValues(journal.StatusFailed).Inc()
    r.bus.Publish(events.Completion{RunID: runID, Failed: true})
}

// processSource fetches and extracts one source, then normalizes dates and
// geography for every candidate. The remote geocoder is not consulted here;
// remote lookups belong to the post-run sweep.
func (r *Runner) processSource(ctx context.Context, source string) ([]events.Record, error) {
    content, via, err := r.scraper.Fetch(ctx, source)
    if err != nil {
        return nil, fmt.Errorf("fetch: %w", err)
    }
    r.log.WithFields(logrus.Fields{"source": source, "via": via, "chars": len(content)}).Debug("page fetched")

    candidates, err := r.extractor.Extract(ctx, content)
    if err != nil {
        return nil, fmt.Errorf("extract: %w", err)
    }

    now := r.now()
    out := make([]events.Record, 0, len(candidates))
    for _, rec := range candidates {
        norm := temporal.Normalize(rec.Time, now)
        rec.Time = norm.Display
        if norm.Ongoing {
            rec.Date = ""
        } else {
            rec.Date = temporal.InferDate(rec.Date, rec.Time, now)
        }

        loc := r.resolver.Resolve(ctx, rec.Location, false)
        if loc.Borough != "" {
            rec.Borough = loc.Borough
        }
        if loc.Neighborhood != "" {
            rec.Neighborhood = loc.Neighborhood
        }
        if loc.HasCoords {
            lat, lng := loc.Lat, loc.Lng
            rec.Lat, rec.Lng = &lat, &lng
        }
        out = append(out, rec)
    }
    return out, nil
}

func (r *Runner) loadExisting(ctx context.Context) []events.Record {
    snap, err := r.store.GetSnapshot(ctx)
    if err != nil {
        if err != store.ErrNotFound {
            r.log.WithField("error", err.Error()).Warn("snapshot read failed, starting empty")
        }
        return nil
    }
    return snap.Events
}

func (r *Runner) persist(ctx context.Context, active []events.Record) error {
    return r.store.SetSnapshot(ctx, events.Snapshot{
        Success:     true,
        Count:       len(active),
        Events:      active,
        LastFetched: r.now().UTC().Format(time.RFC3339),
    })
}

func (r *Runner) setStatus(ctx context.Context, status events.Status) {
    if err := r.store.SetStatus(ctx, status); err != nil {
        r.log.WithField("error", err.Error()).Warn("status write failed")
    }
}

func truncateSource(source string) string {
    if len(source) > 50 {
        return source[:50] + "..."
    }
    return source
}

// GeocodeResult reports one geocode sweep.
type GeocodeResult struct {
    Geocoded  int `json:"geocoded"`
    Processed int `json:"processed"`
    Remaining int `json:"remaining"`
    Total     int `json:"totalEvents"`
}

// GeocodeSweep fills coordinates for one batch of events, remote fallback
// allowed. The resolver's limiter keeps this at one lookup per second.
func (r *Runner) GeocodeSweep(ctx context.Context) (GeocodeResult, error) {
    snap, err := r.store.GetSnapshot(ctx)
    if err == store.ErrNotFound {
        return GeocodeResult{}, nil
    }
    if err != nil {
        return GeocodeResult{}, fmt.Errorf("read snapshot: %w", err)
    }

    var pending []int
    for i, rec := range snap.Events {
        if !rec.HasCoordinates() {
            pending = append(pending, i)
        }
    }
    result := GeocodeResult{Total: len(snap.Events)}
    if len(pending) == 0 {
        return result, nil
    }
    batch := pending
    if len(batch) > r.cfg.GeocodeBatch {
        batch = batch[:r.cfg.GeocodeBatch]
    }
    result.Processed = len(batch)

    for _, pos := range batch {
        rec := &snap.Events[pos]
        loc := r.resolver.Resolve(ctx, rec.Location, true)
        if loc.Borough != "" && rec.Borough == "" {
            rec.Borough = loc.Borough
        }
        if loc.Neighborhood != "" && rec.Neighborhood == "" {
            rec.Neighborhood = loc.Neighborhood
        }
        if loc.HasCoords {
            lat, lng := loc.Lat, loc.Lng
            rec.Lat, rec.Lng = &lat, &lng
            result.Geocoded++
            metrics.GeocodeCalls.WithLabelValues("hit").Inc()
        } else {
            metrics.GeocodeCalls.WithLabelValues("miss").Inc()
        }
    }

    snap.LastFetched = r.now().UTC().Format(time.RFC3339)
    if err := r.store.SetSnapshot(ctx, snap); err != nil {
        return result, fmt.Errorf("write snapshot: %w", err)
    }
    result.Remaining = len(pending) - result.Processed
    r.log.WithFields(logrus.Fields{"geocoded": result.Geocoded, "remaining": result.Remaining}).Info("geocode sweep complete")
    return result, nil
}
