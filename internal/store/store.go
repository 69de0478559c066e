package store

import (
    "context"
    "errors"
    "time"

    "ephemera/internal/events"
)

// Redis keys for the two snapshot documents and the completion marker.
const (
    EventsKey        = "nyc_events"
    StatusKey        = "scraping_status"
    LastCompletedKey = "scraping:lastCompleted"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is the persistence boundary. Snapshots are read and written as whole
// documents; there is no partial update API, so correctness relies on the
// single-active-run invariant enforced by the orchestrator.
type Store interface {
    GetSnapshot(ctx context.Context) (events.Snapshot, error)
    SetSnapshot(ctx context.Context, snap events.Snapshot) error
    GetStatus(ctx context.Context) (events.Status, error)
    SetStatus(ctx context.Context, status events.Status) error
    DeleteStatus(ctx context.Context) error
    GetLastCompleted(ctx context.Context) (time.Time, error)
    SetLastCompleted(ctx context.Context, t time.Time) error
    Ping(ctx context.Context) error
    Close() error
}
