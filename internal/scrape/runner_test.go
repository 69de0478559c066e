package scrape

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "ephemera/internal/config"
    "ephemera/internal/events"
    "ephemera/internal/extract"
    "ephemera/internal/journal"
    "ephemera/internal/location"
    "ephemera/internal/logging"
    "ephemera/internal/store"
)

var testNow = time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

func anthropicStub(t *testing.T, perPage map[string]string) *httptest.Server {
    return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var body struct {
            Messages []struct {
                Content string `json:"content"`
            } `json:"messages"`
        }
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
            t.Errorf("bad anthropic body: %v", err)
        }
        reply := "[]"
        for marker, events := range perPage {
            if len(body.Messages) > 0 && strings.Contains(body.Messages[0].Content, marker) {
                reply = events
            }
        }
        resp := map[string]any{"content": []map[string]string{{"type": "text", "text": reply}}}
        _ = json.NewEncoder(w).Encode(resp)
    }))
}

func newTestRunner(t *testing.T, st store.Store, sources []string, firecrawlURL, anthropicURL string) (*Runner, *journal.Journal) {
    t.Helper()
    log := logging.New("test", "error")
    jnl, err := journal.Open(filepath.Join(t.TempDir(), "runs.db"))
    if err != nil {
        t.Fatal(err)
    }
    t.Cleanup(func() { jnl.Close() })

    scraper := extract.NewScraper(http.DefaultClient, "fk", "sk", log)
    scraper.SetEndpoints(firecrawlURL, "http://127.0.0.1:0")
    client := extract.NewClient(http.DefaultClient, "ak", "claude-haiku-4-5")
    client.SetEndpoint(anthropicURL)

    cfg := config.Config{StaleRunAfter: 10 * time.Minute, GeocodeBatch: 10, MaxContentChars: 200000}
    r := NewRunner(cfg, st, jnl, scraper, extract.NewExtractor(client, cfg.MaxContentChars), location.NewResolver(http.DefaultClient, log), events.NewBus(), sources, log)
    r.now = func() time.Time { return testNow }
    return r, jnl
}

func TestRunIsolatesSourceFailures(t *testing.T) {
    firecrawl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var body struct {
            URL string `json:"url"`
        }
        _ = json.NewDecoder(r.Body).Decode(&body)
        if body.URL == "https://broken.example/events" {
            w.WriteHeader(http.StatusBadGateway)
            return
        }
        w.Write([]byte(`{"data":{"markdown":"PAGE-A listings"}}`))
    }))
    defer firecrawl.Close()

    api := anthropicStub(t, map[string]string{
        "PAGE-A": `[{"title":"Jazz Night","time":"November 9, 7:00 PM","location":"Williamsburg","category":"Cultural & Arts"}]`,
    })
    defer api.Close()

    st := store.NewMemory()
    ctx := context.Background()
    sources := []string{"https://good.example/events", "https://broken.example/events"}
    r, jnl := newTestRunner(t, st, sources, firecrawl.URL, api.URL)

    runID, err := r.Begin(ctx, "manual")
    if err != nil {
        t.Fatal(err)
    }
    if err := r.Execute(ctx, runID); err != nil {
        t.Fatal(err)
    }

    snap, err := st.GetSnapshot(ctx)
    if err != nil {
        t.Fatal(err)
    }
    if snap.Count != 1 || len(snap.Events) != 1 {
        t.Fatalf("expected one stored event, got %+v", snap)
    }
    got := snap.Events[0]
    if got.Date != "2025-11-09" {
        t.Fatalf("date not inferred: %q", got.Date)
    }
    if got.Borough != "Brooklyn" || got.Lat == nil {
        t.Fatalf("location not resolved: %+v", got)
    }

    status, err := st.GetStatus(ctx)
    if err != nil {
        t.Fatal(err)
    }
    if status.IsRunning || status.SourcesCompleted != 2 || status.EventsScraped != 1 {
        t.Fatalf("unexpected final status %+v", status)
    }
    if len(status.Errors) != 1 {
        t.Fatalf("expected one recorded error, got %v", status.Errors)
    }
    if _, err := st.GetLastCompleted(ctx); err != nil {
        t.Fatalf("completion timestamp missing: %v", err)
    }

    runs, err := jnl.ListRuns(ctx, 5)
    if err != nil {
        t.Fatal(err)
    }
    if len(runs) != 1 || runs[0].Status != journal.StatusCompleted || runs[0].EventsScraped != 1 {
        t.Fatalf("unexpected ledger %+v", runs)
    }
    srcErrs, err := jnl.RunErrors(ctx, runID)
    if err != nil {
        t.Fatal(err)
    }
    if len(srcErrs) != 1 || srcErrs[0].Source != "https://broken.example/events" {
        t.Fatalf("unexpected source errors %+v", srcErrs)
    }
}

func TestRunReplacesExistingByKey(t *testing.T) {
    firecrawl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`{"data":{"markdown":"PAGE-A listings"}}`))
    }))
    defer firecrawl.Close()
    api := anthropicStub(t, map[string]string{
        "PAGE-A": `[{"title":"Jazz Night","time":"November 9, 7:00 PM","location":"Williamsburg","description":"fresh"}]`,
    })
    defer api.Close()

    st := store.NewMemory()
    ctx := context.Background()
    _ = st.SetSnapshot(ctx, events.Snapshot{
        Success: true,
        Count:   2,
        Events: []events.Record{
            {Title: "Jazz Night", Location: "Williamsburg", Date: "2025-11-02", Description: "stale copy"},
            {Title: "Expired Market", Location: "SoHo", Date: "2025-10-01"},
        },
    })

    r, _ := newTestRunner(t, st, []string{"https://good.example/events"}, firecrawl.URL, api.URL)
    runID, err := r.Begin(ctx, "manual")
    if err != nil {
        t.Fatal(err)
    }
    if err := r.Execute(ctx, runID); err != nil {
        t.Fatal(err)
    }

    snap, _ := st.GetSnapshot(ctx)
    if len(snap.Events) != 1 {
        t.Fatalf("expected expired event dropped and duplicate replaced, got %+v", snap.Events)
    }
    if snap.Events[0].Description != "fresh" || snap.Events[0].Date != "2025-11-09" {
        t.Fatalf("existing record not replaced: %+v", snap.Events[0])
    }
}

func TestBeginAdmission(t *testing.T) {
    st := store.NewMemory()
    ctx := context.Background()
    r, _ := newTestRunner(t, st, nil, "http://127.0.0.1:0", "http://127.0.0.1:0")

    _ = st.SetStatus(ctx, events.Status{
        IsRunning:  true,
        LastUpdate: testNow.Add(-time.Minute).Format(time.RFC3339),
    })
    if _, err := r.Begin(ctx, "manual"); err != ErrAlreadyRunning {
        t.Fatalf("fresh run must reject, got %v", err)
    }

    _ = st.SetStatus(ctx, events.Status{
        IsRunning:  true,
        LastUpdate: testNow.Add(-20 * time.Minute).Format(time.RFC3339),
    })
    if _, err := r.Begin(ctx, "manual"); err != nil {
        t.Fatalf("stale run must be superseded, got %v", err)
    }
    status, _ := st.GetStatus(ctx)
    if !status.IsRunning || status.LastUpdate != testNow.Format(time.RFC3339) {
        t.Fatalf("run not claimed: %+v", status)
    }
}

func TestGeocodeSweep(t *testing.T) {
    nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`[{"lat":"40.7000","lon":"-73.9000"}]`))
    }))
    defer nominatim.Close()

    st := store.NewMemory()
    ctx := context.Background()
    lat, lng := 40.73, -73.99
    _ = st.SetSnapshot(ctx, events.Snapshot{
        Success: true,
        Count:   3,
        Events: []events.Record{
            {Title: "a", Location: "Williamsburg"},
            {Title: "b", Location: "Obscure Loft Space"},
            {Title: "c", Location: "Union Square", Lat: &lat, Lng: &lng},
        },
    })

    r, _ := newTestRunner(t, st, nil, "http://127.0.0.1:0", "http://127.0.0.1:0")
    r.resolver.SetBaseURL(nominatim.URL)

    res, err := r.GeocodeSweep(ctx)
    if err != nil {
        t.Fatal(err)
    }
    if res.Geocoded != 2 || res.Processed != 2 || res.Remaining != 0 || res.Total != 3 {
        t.Fatalf("unexpected sweep result %+v", res)
    }
    snap, _ := st.GetSnapshot(ctx)
    if snap.Events[0].Lat == nil || *snap.Events[0].Lat != 40.7081 {
        t.Fatalf("static lookup missed: %+v", snap.Events[0])
    }
    if snap.Events[1].Lat == nil || *snap.Events[1].Lat != 40.7 {
        t.Fatalf("remote lookup missed: %+v", snap.Events[1])
    }
}
