package events

import (
    "sort"
    "strings"
)

// Record is one event listing as served to clients. Field names track the
// snapshot JSON consumed by the mobile and web clients.
type Record struct {
    Title        string   `json:"title"`
    Description  string   `json:"description"`
    Time         string   `json:"time"`
    Date         string   `json:"date,omitempty"`
    Location     string   `json:"location"`
    Category     string   `json:"category,omitempty"`
    Borough      string   `json:"borough,omitempty"`
    Neighborhood string   `json:"neighborhood,omitempty"`
    Lat          *float64 `json:"lat,omitempty"`
    Lng          *float64 `json:"lng,omitempty"`
    Link         string   `json:"link,omitempty"`
    TicketLink   string   `json:"ticketLink,omitempty"`
    Enriched     bool     `json:"enriched,omitempty"`
}

// Key is the deduplication identity: lowercase title plus link, or location
// when the record has no link. Two distinct events sharing a generic title
// and no link will collide; the upstream data gives nothing better.
func (r Record) Key() string {
    tail := r.Link
    if tail == "" {
        tail = r.Location
    }
    return strings.ToLower(r.Title) + "|" + tail
}

// HasCoordinates reports whether both lat and lng are set.
func (r Record) HasCoordinates() bool {
    return r.Lat != nil && r.Lng != nil
}

// Ongoing reports whether the time string carries an open-ended marker.
// Such records are dateless but retained by the staleness filter.
func (r Record) Ongoing() bool {
    t := strings.ToLower(r.Time)
    return strings.Contains(t, "ongoing") || strings.Contains(t, "permanent")
}

// Merge folds incoming records into existing ones, last write wins per key.
// Replacement is whole-record: a later version never inherits fields from
// the one it displaces. Records with empty titles are dropped. The result
// preserves the order of existing entries with new keys appended in arrival
// order, so repeated merges are deterministic.
func Merge(existing, incoming []Record) []Record {
    index := make(map[string]int, len(existing)+len(incoming))
    out := make([]Record, 0, len(existing)+len(incoming))
    for _, rec := range existing {
        if rec.Title == "" {
            continue
        }
        key := rec.Key()
        if pos, ok := index[key]; ok {
            out[pos] = rec
            continue
        }
        index[key] = len(out)
        out = append(out, rec)
    }
    for _, rec := range incoming {
        if rec.Title == "" {
            continue
        }
        key := rec.Key()
        if pos, ok := index[key]; ok {
            out[pos] = rec
            continue
        }
        index[key] = len(out)
        out = append(out, rec)
    }
    return out
}

// FilterStale retains records dated today or later, dateless records, and
// anything marked ongoing. today is a YYYY-MM-DD civil date in Eastern time.
func FilterStale(records []Record, today string) []Record {
    out := make([]Record, 0, len(records))
    for _, rec := range records {
        if rec.Ongoing() || rec.Date == "" || rec.Date >= today {
            out = append(out, rec)
        }
    }
    return out
}

// SortByDate orders records ascending by canonical date, dateless last.
// The sort is stable so same-day records keep merge order.
func SortByDate(records []Record) {
    sort.SliceStable(records, func(i, j int) bool {
        a, b := records[i].Date, records[j].Date
        if a == "" {
            return false
        }
        if b == "" {
            return true
        }
        return a < b
    })
}

// Snapshot is the whole-document events payload persisted to the store and
// returned by the feed endpoint.
type Snapshot struct {
    Success     bool     `json:"success"`
    Count       int      `json:"count"`
    Events      []Record `json:"events"`
    LastFetched string   `json:"lastFetched,omitempty"`
}

// Status is the scrape progress document polled by clients. LastUpdate is
// the run heartbeat used for stale-run takeover.
type Status struct {
    IsRunning        bool     `json:"isRunning"`
    CurrentSource    string   `json:"currentSource"`
    SourcesCompleted int      `json:"sourcesCompleted"`
    TotalSources     int      `json:"totalSources"`
    EventsScraped    int      `json:"eventsScraped"`
    LastUpdate       string   `json:"lastUpdate"`
    Errors           []string `json:"errors,omitempty"`
    Error            string   `json:"error,omitempty"`
}

// BoundErrors keeps only the five most recent error strings.
func BoundErrors(errs []string) []string {
    if len(errs) <= 5 {
        return errs
    }
    return errs[len(errs)-5:]
}
