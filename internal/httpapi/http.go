package httpapi

import (
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "ephemera/internal/config"
    "ephemera/internal/events"
    "ephemera/internal/journal"
    "ephemera/internal/metrics"
    "ephemera/internal/queue"
    "ephemera/internal/scrape"
    "ephemera/internal/store"
    "ephemera/internal/temporal"
)

// Router builds HTTP handlers for /api and /ops.
type Router struct {
    cfg      config.Config
    store    store.Store
    journal  *journal.Journal
    pipeline *scrape.Pipeline
    queue    *queue.Queue
    log      *logrus.Logger

    // now is swappable for tests.
    now func() time.Time
}

func NewRouter(cfg config.Config, st store.Store, jnl *journal.Journal, pipeline *scrape.Pipeline, q *queue.Queue, log *logrus.Logger) *Router {
    return &Router{cfg: cfg, store: st, journal: jnl, pipeline: pipeline, queue: q, log: log, now: time.Now}
}

func (r *Router) Register(mux *http.ServeMux) {
    mux.HandleFunc("/api/events", r.events)
    mux.HandleFunc("/api/events/status", r.status)
    mux.HandleFunc("/api/events/fetch", r.fetch)
    mux.HandleFunc("/api/events/refresh", r.refresh)
    mux.HandleFunc("/api/events/geocode", r.geocode)
    mux.HandleFunc("/api/events/enrich", r.enrich)
    mux.HandleFunc("/ops/runs", r.runs)
    mux.HandleFunc("/ops/runs/", r.runDetail)
    mux.HandleFunc("/ops/reset-status", r.resetStatus)
    mux.HandleFunc("/ops/status", r.opsStatus)
    mux.HandleFunc("/ops/health", r.health)
    mux.Handle("/metrics", metrics.Handler())
}

// events serves the upcoming-events feed: dates are backfilled from display
// times where missing, past and dateless events are excluded, and the rest
// is sorted soonest first.
func (r *Router) events(w http.ResponseWriter, req *http.Request) {
    snap, err := r.store.GetSnapshot(req.Context())
    if err == store.ErrNotFound {
        respondJSON(w, events.Snapshot{Success: true, Events: []events.Record{}})
        return
    }
    if err != nil {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }

    now := r.now()
    today := temporal.Today(now)
    upcoming := make([]events.Record, 0, len(snap.Events))
    for _, rec := range snap.Events {
        rec.Date = temporal.InferDate(rec.Date, rec.Time, now)
        if rec.Date == "" || rec.Date < today {
            continue
        }
        upcoming = append(upcoming, rec)
    }
    events.SortByDate(upcoming)
    respondJSON(w, events.Snapshot{
        Success:     true,
        Count:       len(upcoming),
        Events:      upcoming,
        LastFetched: snap.LastFetched,
    })
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
    ctx := req.Context()
    payload := map[string]any{"success": true}

    if status, err := r.store.GetStatus(ctx); err == nil {
        payload["scraping"] = status
    } else if err != store.ErrNotFound {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }

    snap, err := r.store.GetSnapshot(ctx)
    if err != nil && err != store.ErrNotFound {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }
    geocoded := 0
    for _, rec := range snap.Events {
        if rec.HasCoordinates() {
            geocoded++
        }
    }
    payload["totalEvents"] = len(snap.Events)
    payload["lastFetched"] = snap.LastFetched
    payload["geocoding"] = map[string]int{
        "total":     len(snap.Events),
        "geocoded":  geocoded,
        "remaining": len(snap.Events) - geocoded,
    }
    respondJSON(w, payload)
}

func (r *Router) fetch(w http.ResponseWriter, req *http.Request) {
    r.trigger(w, req, "manual")
}

func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
    r.trigger(w, req, "refresh")
}

func (r *Router) trigger(w http.ResponseWriter, req *http.Request, kind string) {
    if req.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    runID, err := r.pipeline.TriggerRun(req.Context(), kind)
    if err == scrape.ErrAlreadyRunning {
        respondStatusJSON(w, http.StatusConflict, map[string]any{
            "success": false,
            "error":   "Scraping is already in progress",
        })
        return
    }
    if err != nil {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }
    respondStatusJSON(w, http.StatusAccepted, map[string]any{"success": true, "runId": runID})
}

func (r *Router) geocode(w http.ResponseWriter, req *http.Request) {
    if req.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    res, err := r.pipeline.Geocode(req.Context())
    if err != nil {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }
    respondJSON(w, map[string]any{
        "success":     true,
        "geocoded":    res.Geocoded,
        "processed":   res.Processed,
        "remaining":   res.Remaining,
        "totalEvents": res.Total,
    })
}

func (r *Router) enrich(w http.ResponseWriter, req *http.Request) {
    if req.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    res, err := r.pipeline.Enrich(req.Context())
    if err != nil {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }
    respondJSON(w, map[string]any{
        "success":       true,
        "enrichedCount": res.Enriched,
        "remaining":     res.Remaining,
        "totalEvents":   res.Total,
    })
}

func (r *Router) runs(w http.ResponseWriter, req *http.Request) {
    list, err := r.journal.ListRuns(req.Context(), 50)
    if err != nil {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }
    if list == nil {
        list = []journal.Run{}
    }
    respondJSON(w, list)
}

func (r *Router) runDetail(w http.ResponseWriter, req *http.Request) {
    runID := strings.TrimPrefix(req.URL.Path, "/ops/runs/")
    if runID == "" {
        http.NotFound(w, req)
        return
    }
    errs, err := r.journal.RunErrors(req.Context(), runID)
    if err != nil {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }
    if errs == nil {
        errs = []journal.SourceError{}
    }
    respondJSON(w, errs)
}

// resetStatus clears a wedged status document so a new run can start
// immediately instead of waiting out the staleness window.
func (r *Router) resetStatus(w http.ResponseWriter, req *http.Request) {
    if req.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if err := r.store.DeleteStatus(req.Context()); err != nil {
        respondError(w, http.StatusInternalServerError, err.Error())
        return
    }
    respondJSON(w, map[string]any{"success": true, "message": "Scraping status reset"})
}

func (r *Router) opsStatus(w http.ResponseWriter, req *http.Request) {
    stats := r.queue.Stats()
    respondJSON(w, map[string]any{
        "queue": map[string]any{
            "length":    stats.Length,
            "capacity":  stats.Capacity,
            "workers":   stats.WorkerCount,
            "processed": stats.Processed,
            "failed":    stats.Failed,
        },
        "environment": r.cfg.Environment,
    })
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
    if err := r.store.Ping(req.Context()); err != nil {
        http.Error(w, err.Error(), http.StatusServiceUnavailable)
        return
    }
    if err := r.journal.Health(req.Context()); err != nil {
        http.Error(w, err.Error(), http.StatusServiceUnavailable)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, payload any) {
    respondStatusJSON(w, http.StatusOK, payload)
}

func respondStatusJSON(w http.ResponseWriter, status int, payload any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
    respondStatusJSON(w, status, map[string]any{"success": false, "error": msg})
}
