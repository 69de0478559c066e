package enrich

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "ephemera/internal/events"
    "ephemera/internal/extract"
    "ephemera/internal/metrics"
    "ephemera/internal/store"
)

// Enricher rewrites thin event descriptions one batch at a time. Each sweep
// processes at most batchSize unenriched events and writes the snapshot back.
type Enricher struct {
    client    *extract.Client
    store     store.Store
    batchSize int
    log       *logrus.Logger
}

func New(client *extract.Client, st store.Store, batchSize int, log *logrus.Logger) *Enricher {
    return &Enricher{client: client, store: st, batchSize: batchSize, log: log}
}

// SweepResult reports one enrichment pass.
type SweepResult struct {
    Enriched  int `json:"enrichedCount"`
    Remaining int `json:"remaining"`
    Total     int `json:"totalEvents"`
}

type enrichment struct {
    Index       int    `json:"index"`
    Description string `json:"description"`
}

// Sweep enriches one batch. A snapshot with nothing to do is not an error.
func (e *Enricher) Sweep(ctx context.Context) (SweepResult, error) {
    snap, err := e.store.GetSnapshot(ctx)
    if err == store.ErrNotFound {
        return SweepResult{}, nil
    }
    if err != nil {
        return SweepResult{}, fmt.Errorf("read snapshot: %w", err)
    }

    var pending []int
    for i, rec := range snap.Events {
        if !rec.Enriched {
            pending = append(pending, i)
        }
    }
    result := SweepResult{Total: len(snap.Events), Remaining: len(pending)}
    if len(pending) == 0 {
        return result, nil
    }
    batch := pending
    if len(batch) > e.batchSize {
        batch = batch[:e.batchSize]
    }

    out, err := e.client.Complete(ctx, buildEnrichPrompt(snap.Events, batch), 4096)
    if err != nil {
        return result, fmt.Errorf("enrichment call: %w", err)
    }
    arr := extract.FirstJSONArray(out)
    if arr == "" {
        return result, fmt.Errorf("no enrichment array in model output")
    }
    var enrichments []enrichment
    if err := json.Unmarshal([]byte(arr), &enrichments); err != nil {
        return result, fmt.Errorf("parse enrichments: %w", err)
    }

    for _, en := range enrichments {
        // Indexes are 1-based positions within the batch.
        if en.Index < 1 || en.Index > len(batch) {
            continue
        }
        desc := strings.TrimSpace(en.Description)
        if desc == "" {
            continue
        }
        pos := batch[en.Index-1]
        snap.Events[pos].Description = desc
        snap.Events[pos].Enriched = true
        result.Enriched++
    }

    snap.Count = len(snap.Events)
    snap.LastFetched = time.Now().UTC().Format(time.RFC3339)
    if err := e.store.SetSnapshot(ctx, snap); err != nil {
        return result, fmt.Errorf("write snapshot: %w", err)
    }
    result.Remaining = len(pending) - result.Enriched
    metrics.EventsEnriched.Add(float64(result.Enriched))
    e.log.WithFields(logrus.Fields{"enriched": result.Enriched, "remaining": result.Remaining}).Info("enrichment sweep complete")
    return result, nil
}

func buildEnrichPrompt(all []events.Record, batch []int) string {
    var b strings.Builder
    for i, pos := range batch {
        rec := all[pos]
        category := rec.Category
        if category == "" {
            category = "unknown"
        }
        fmt.Fprintf(&b, "%d. Title: %s\n   Location: %s\n   Time: %s\n   Category: %s\n   Current description: %s\n\n",
            i+1, rec.Title, rec.Location, rec.Time, category, rec.Description)
    }
    return fmt.Sprintf(`You are enriching event descriptions for an NYC events app. For each event below, write a compelling 2-3 sentence description using your knowledge about the artist, band, comedian, theater company, exhibit, or event.

Guidelines:
- For bands/musicians: mention their genre, style, and notable albums or songs
- For comedians: mention their comedy style and what they're known for
- For art exhibits/museums: describe what's being shown and the artist's significance
- For theater/dance: describe the show and production company
- For generic events (food festivals, markets, etc.): describe what attendees can expect
- If you don't know the specific artist/event, write a good description based on the venue and event type
- Keep each description to 2-3 sentences, vivid and informative
- Do NOT include the event title in the description

Return a JSON array of objects with "index" (1-based, matching the numbering below) and "description" fields. Return ONLY the JSON array, no other text.

Events:

%s`, b.String())
}
