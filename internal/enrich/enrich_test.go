package enrich

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"

    "ephemera/internal/events"
    "ephemera/internal/extract"
    "ephemera/internal/logging"
    "ephemera/internal/store"
)

func TestSweepEnrichesBatch(t *testing.T) {
    api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`{"content":[{"type":"text","text":"[{\"index\":1,\"description\":\"A legendary basement jazz club set.\"},{\"index\":9,\"description\":\"out of range\"}]"}]}`))
    }))
    defer api.Close()

    st := store.NewMemory()
    ctx := context.Background()
    _ = st.SetSnapshot(ctx, events.Snapshot{
        Success: true,
        Count:   2,
        Events: []events.Record{
            {Title: "Jazz Night", Location: "Smalls", Description: "jazz"},
            {Title: "Done Already", Location: "BAM", Enriched: true},
        },
    })

    client := extract.NewClient(http.DefaultClient, "ak", "claude-haiku-4-5")
    client.SetEndpoint(api.URL)
    e := New(client, st, 25, logging.New("test", "error"))

    res, err := e.Sweep(ctx)
    if err != nil {
        t.Fatal(err)
    }
    if res.Enriched != 1 || res.Remaining != 0 {
        t.Fatalf("unexpected result %+v", res)
    }
    snap, _ := st.GetSnapshot(ctx)
    if !snap.Events[0].Enriched || snap.Events[0].Description != "A legendary basement jazz club set." {
        t.Fatalf("event not enriched: %+v", snap.Events[0])
    }
    if snap.Events[1].Description != "" {
        t.Fatalf("already-enriched event touched: %+v", snap.Events[1])
    }
}

func TestSweepNothingPending(t *testing.T) {
    st := store.NewMemory()
    ctx := context.Background()
    _ = st.SetSnapshot(ctx, events.Snapshot{Events: []events.Record{{Title: "x", Location: "y", Enriched: true}}})

    // Client must not be called; point it nowhere reachable.
    client := extract.NewClient(http.DefaultClient, "ak", "m")
    client.SetEndpoint("http://127.0.0.1:0")
    e := New(client, st, 25, logging.New("test", "error"))
    res, err := e.Sweep(ctx)
    if err != nil {
        t.Fatal(err)
    }
    if res.Enriched != 0 || res.Remaining != 0 || res.Total != 1 {
        t.Fatalf("unexpected result %+v", res)
    }
}

func TestSweepEmptyStore(t *testing.T) {
    client := extract.NewClient(http.DefaultClient, "ak", "m")
    client.SetEndpoint("http://127.0.0.1:0")
    e := New(client, store.NewMemory(), 25, logging.New("test", "error"))
    if _, err := e.Sweep(context.Background()); err != nil {
        t.Fatalf("empty store must not error, got %v", err)
    }
}
