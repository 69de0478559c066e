package events

import "sync"

// Completion is published when a scrape run finishes.
type Completion struct {
    RunID         string
    EventsScraped int
    Sources       int
    Failed        bool
}

// Bus provides simple in-process pub/sub for run completions.
type Bus struct {
    mu   sync.RWMutex
    subs []chan Completion
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan Completion {
    ch := make(chan Completion, 4)
    b.mu.Lock()
    defer b.mu.Unlock()
    b.subs = append(b.subs, ch)
    return ch
}

// Publish never blocks; slow subscribers miss notices.
func (b *Bus) Publish(c Completion) {
    b.mu.RLock()
    defer b.mu.RUnlock()
    for _, ch := range b.subs {
        select {
        case ch <- c:
        default:
        }
    }
}
