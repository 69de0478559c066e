package scrape

import (
    "context"
    "testing"
    "time"

    "ephemera/internal/enrich"
    "ephemera/internal/events"
    "ephemera/internal/extract"
    "ephemera/internal/logging"
    "ephemera/internal/queue"
    "ephemera/internal/store"
)

func newTestPipeline(t *testing.T, st store.Store) (*Pipeline, *events.Bus) {
    t.Helper()
    log := logging.New("test", "error")
    r, _ := newTestRunner(t, st, nil, "http://127.0.0.1:0", "http://127.0.0.1:0")

    client := extract.NewClient(nil, "ak", "m")
    client.SetEndpoint("http://127.0.0.1:0")
    enricher := enrich.New(client, st, 25, log)

    q := queue.New(4, 1, time.Minute, log)
    ctx, cancel := context.WithCancel(context.Background())
    t.Cleanup(cancel)
    q.Start(ctx)
    return NewPipeline(r, enricher, q, r.bus, "", log), r.bus
}

func TestTriggerRunExecutesThroughQueue(t *testing.T) {
    st := store.NewMemory()
    p, bus := newTestPipeline(t, st)
    done := bus.Subscribe()

    runID, err := p.TriggerRun(context.Background(), "manual")
    if err != nil {
        t.Fatal(err)
    }
    select {
    case c := <-done:
        if c.RunID != runID || c.Failed {
            t.Fatalf("unexpected completion %+v", c)
        }
    case <-time.After(5 * time.Second):
        t.Fatal("run never completed")
    }

    status, err := st.GetStatus(context.Background())
    if err != nil {
        t.Fatal(err)
    }
    if status.IsRunning {
        t.Fatalf("run still marked active: %+v", status)
    }
    if _, err := st.GetLastCompleted(context.Background()); err != nil {
        t.Fatalf("completion marker missing: %v", err)
    }
}

func TestTriggerRunConflict(t *testing.T) {
    st := store.NewMemory()
    p, _ := newTestPipeline(t, st)
    _ = st.SetStatus(context.Background(), events.Status{
        IsRunning:  true,
        LastUpdate: testNow.Format(time.RFC3339),
    })
    if _, err := p.TriggerRun(context.Background(), "manual"); err != ErrAlreadyRunning {
        t.Fatalf("expected ErrAlreadyRunning, got %v", err)
    }
}

func TestSchedulerSkipsRecentCompletion(t *testing.T) {
    st := store.NewMemory()
    p, _ := newTestPipeline(t, st)
    _ = st.SetLastCompleted(context.Background(), time.Now().UTC())

    s := NewScheduler(p, st, 48*time.Hour, logging.New("test", "error"))
    s.tick(context.Background())

    if _, err := st.GetStatus(context.Background()); err != store.ErrNotFound {
        t.Fatalf("scheduler started a run too early: %v", err)
    }
}

func TestSchedulerTriggersWhenDue(t *testing.T) {
    st := store.NewMemory()
    p, _ := newTestPipeline(t, st)
    _ = st.SetLastCompleted(context.Background(), time.Now().UTC().Add(-72*time.Hour))

    s := NewScheduler(p, st, 48*time.Hour, logging.New("test", "error"))
    s.tick(context.Background())

    if _, err := st.GetStatus(context.Background()); err != nil {
        t.Fatalf("scheduler did not claim a run: %v", err)
    }
}
