package app

import (
    "context"
    "net/http"
    "time"

    "github.com/sirupsen/logrus"

    "ephemera/internal/config"
    "ephemera/internal/enrich"
    "ephemera/internal/events"
    "ephemera/internal/extract"
    "ephemera/internal/httpapi"
    "ephemera/internal/journal"
    "ephemera/internal/location"
    "ephemera/internal/logging"
    "ephemera/internal/queue"
    "ephemera/internal/scrape"
    "ephemera/internal/store"
    "ephemera/internal/watch"
)

// App wires the pipeline components together.
type App struct {
    cfg       config.Config
    log       *logrus.Logger
    store     store.Store
    journal   *journal.Journal
    runner    *scrape.Runner
    pipeline  *scrape.Pipeline
    scheduler *scrape.Scheduler
    watcher   *watch.Watcher
    queue     *queue.Queue
    mux       *http.ServeMux
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
    log := logging.New("ephemera", cfg.LogLevel)

    var st store.Store
    if cfg.RedisURL != "" {
        redis, err := store.OpenRedis(ctx, cfg.RedisURL)
        if err != nil {
            return nil, err
        }
        st = redis
    } else {
        log.Warn("no redis configured, events will not survive restarts")
        st = store.NewMemory()
    }

    jnl, err := journal.Open(cfg.JournalPath)
    if err != nil {
        return nil, err
    }

    sources, err := config.LoadSources(cfg.SourcesPath)
    if err != nil {
        return nil, err
    }
    log.WithField("sources", len(sources)).Info("source list loaded")

    scraper := extract.NewScraper(nil, cfg.FirecrawlKey, cfg.ScrapflyKey, log)
    client := extract.NewClient(&http.Client{Timeout: 2 * time.Minute}, cfg.AnthropicKey, cfg.ExtractModel)
    extractor := extract.NewExtractor(client, cfg.MaxContentChars)
    resolver := location.NewResolver(nil, log)
    enricher := enrich.New(client, st, cfg.EnrichBatch, log)

    bus := events.NewBus()
    runner := scrape.NewRunner(cfg, st, jnl, scraper, extractor, resolver, bus, sources, log)

    // One worker: scrape runs and sweeps must never overlap.
    q := queue.New(cfg.QueueSize, 1, 2*time.Hour, log)
    pipeline := scrape.NewPipeline(runner, enricher, q, bus, cfg.NotifyWebhook, log)
    scheduler := scrape.NewScheduler(pipeline, st, cfg.ScrapeInterval, log)
    watcher := watch.New(cfg.SourcesPath, runner.SetSources, log)

    mux := http.NewServeMux()
    router := httpapi.NewRouter(cfg, st, jnl, pipeline, q, log)
    router.Register(mux)

    return &App{
        cfg:       cfg,
        log:       log,
        store:     st,
        journal:   jnl,
        runner:    runner,
        pipeline:  pipeline,
        scheduler: scheduler,
        watcher:   watcher,
        queue:     q,
        mux:       mux,
    }, nil
}

// Run starts the queue, scheduler, watcher, and HTTP server, and blocks
// until the context is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
    a.queue.Start(ctx)
    a.pipeline.Start(ctx)
    if a.cfg.EnableScheduler {
        go a.scheduler.Run(ctx)
    }
    if a.cfg.EnableWatcher {
        if err := a.watcher.Start(ctx); err != nil {
            return err
        }
    }

    srv := &http.Server{Addr: ":" + a.cfg.HTTPPort, Handler: a.mux}
    go func() {
        <-ctx.Done()
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        _ = srv.Shutdown(shutdownCtx)
    }()
    a.log.WithField("port", a.cfg.HTTPPort).Info("http listening")
    err := srv.ListenAndServe()

    drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    a.queue.Stop(drainCtx)
    a.journal.Close()
    a.store.Close()
    if err == http.ErrServerClosed {
        return nil
    }
    return err
}

func (a *App) Pipeline() *scrape.Pipeline { return a.pipeline }
func (a *App) Store() store.Store         { return a.store }
func (a *App) Mux() *http.ServeMux        { return a.mux }
