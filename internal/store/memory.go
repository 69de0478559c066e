package store

import (
    "context"
    "sync"
    "time"

    "ephemera/internal/events"
)

// MemoryStore is the in-process Store used in tests and when REDIS_URL is
// unset. Values are copied on read and write so callers never share slices.
type MemoryStore struct {
    mu            sync.RWMutex
    snapshot      *events.Snapshot
    status        *events.Status
    lastCompleted *time.Time
}

func NewMemory() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) GetSnapshot(ctx context.Context) (events.Snapshot, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.snapshot == nil {
        return events.Snapshot{}, ErrNotFound
    }
    snap := *s.snapshot
    snap.Events = append([]events.Record(nil), s.snapshot.Events...)
    return snap, nil
}

func (s *MemoryStore) SetSnapshot(ctx context.Context, snap events.Snapshot) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    cp := snap
    cp.Events = append([]events.Record(nil), snap.Events...)
    s.snapshot = &cp
    return nil
}

func (s *MemoryStore) GetStatus(ctx context.Context) (events.Status, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.status == nil {
        return events.Status{}, ErrNotFound
    }
    status := *s.status
    status.Errors = append([]string(nil), s.status.Errors...)
    return status, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, status events.Status) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    cp := status
    cp.Errors = append([]string(nil), status.Errors...)
    s.status = &cp
    return nil
}

func (s *MemoryStore) DeleteStatus(ctx context.Context) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.status = nil
    return nil
}

func (s *MemoryStore) GetLastCompleted(ctx context.Context) (time.Time, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.lastCompleted == nil {
        return time.Time{}, ErrNotFound
    }
    return *s.lastCompleted, nil
}

func (s *MemoryStore) SetLastCompleted(ctx context.Context, t time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    cp := t
    s.lastCompleted = &cp
    return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
