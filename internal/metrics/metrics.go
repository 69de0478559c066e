package metrics

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    SourcesScraped = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ephemera_sources_scraped_total",
        Help: "Sources processed across all scrape runs.",
    })
    SourceFailures = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ephemera_source_failures_total",
        Help: "Sources skipped because scraping or extraction failed.",
    })
    EventsExtracted = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ephemera_events_extracted_total",
        Help: "Candidate events produced by the extraction adapter.",
    })
    EventsStored = promauto.NewGauge(prometheus.GaugeOpts{
        Name: "ephemera_events_stored",
        Help: "Events in the last persisted snapshot.",
    })
    RunsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ephemera_runs_finished_total",
        Help: "Scrape runs by terminal status.",
    }, []string{"status"})
    GeocodeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ephemera_geocode_lookups_total",
        Help: "Remote geocode lookups by outcome.",
    }, []string{"outcome"})
    EventsEnriched = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ephemera_events_enriched_total",
        Help: "Events whose descriptions were enriched.",
    })
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }
