package journal

import (
    "context"
    "path/filepath"
    "testing"
    "time"
)

func TestRunLifecycle(t *testing.T) {
    j, err := Open(filepath.Join(t.TempDir(), "test.db"))
    if err != nil {
        t.Fatal(err)
    }
    defer j.Close()
    ctx := context.Background()

    runID := NewRunID()
    started := time.Date(2025, time.November, 9, 12, 0, 0, 0, time.UTC)
    if err := j.StartRun(ctx, runID, "manual", 7, started); err != nil {
        t.Fatalf("start run: %v", err)
    }
    if err := j.UpdateProgress(ctx, runID, 3, 42); err != nil {
        t.Fatalf("update progress: %v", err)
    }
    if err := j.RecordSourceError(ctx, runID, "https://broken.example", "scrapers failed", started.Add(time.Minute)); err != nil {
        t.Fatalf("record error: %v", err)
    }
    if err := j.FinishRun(ctx, runID, StatusCompleted, 7, 99, "", started.Add(5*time.Minute)); err != nil {
        t.Fatalf("finish run: %v", err)
    }

    runs, err := j.ListRuns(ctx, 10)
    if err != nil {
        t.Fatal(err)
    }
    if len(runs) != 1 {
        t.Fatalf("expected 1 run, got %d", len(runs))
    }
    r := runs[0]
    if r.Status != StatusCompleted || r.SourcesDone != 7 || r.EventsScraped != 99 {
        t.Fatalf("unexpected run %+v", r)
    }
    if r.Error != nil {
        t.Fatalf("expected no run error, got %v", *r.Error)
    }
    if r.FinishedAt == nil {
        t.Fatal("expected finished_at set")
    }

    errs, err := j.RunErrors(ctx, runID)
    if err != nil {
        t.Fatal(err)
    }
    if len(errs) != 1 || errs[0].Source != "https://broken.example" {
        t.Fatalf("unexpected errors %v", errs)
    }
}

func TestFinishRunTruncatesError(t *testing.T) {
    j, err := Open(filepath.Join(t.TempDir(), "test.db"))
    if err != nil {
        t.Fatal(err)
    }
    defer j.Close()
    ctx := context.Background()

    runID := NewRunID()
    now := time.Now().UTC()
    if err := j.StartRun(ctx, runID, "scheduled", 1, now); err != nil {
        t.Fatal(err)
    }
    long := make([]byte, 1000)
    for i := range long {
        long[i] = 'e'
    }
    if err := j.FinishRun(ctx, runID, StatusFailed, 0, 0, string(long), now); err != nil {
        t.Fatal(err)
    }
    runs, err := j.ListRuns(ctx, 1)
    if err != nil {
        t.Fatal(err)
    }
    if runs[0].Error == nil || len(*runs[0].Error) != 240 {
        t.Fatalf("expected truncated error, got %v", runs[0].Error)
    }
}
