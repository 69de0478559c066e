package events

import (
    "reflect"
    "testing"
)

func f64(v float64) *float64 { return &v }

func TestKeyPrefersLink(t *testing.T) {
    withLink := Record{Title: "Open Mic Night", Link: "https://a.example/om", Location: "Bar A"}
    if got := withLink.Key(); got != "open mic night|https://a.example/om" {
        t.Fatalf("unexpected key %q", got)
    }
    noLink := Record{Title: "Open Mic Night", Location: "Bar A"}
    if got := noLink.Key(); got != "open mic night|Bar A" {
        t.Fatalf("unexpected key %q", got)
    }
}

func TestMergeLastWriteWins(t *testing.T) {
    existing := []Record{{Title: "Jazz Night", Link: "https://x/jazz", Description: "old", Borough: "Brooklyn"}}
    incoming := []Record{{Title: "Jazz Night", Link: "https://x/jazz", Description: "new"}}
    merged := Merge(existing, incoming)
    if len(merged) != 1 {
        t.Fatalf("expected 1 record, got %d", len(merged))
    }
    if merged[0].Description != "new" {
        t.Fatalf("expected replacement description, got %q", merged[0].Description)
    }
    if merged[0].Borough != "" {
        t.Fatal("replacement must be whole-record, old borough leaked through")
    }
}

func TestMergeIdempotent(t *testing.T) {
    s := []Record{{Title: "A", Location: "L1"}, {Title: "B", Location: "L2"}}
    x := []Record{{Title: "B", Location: "L2", Description: "v2"}, {Title: "C", Location: "L3"}}
    once := Merge(s, x)
    twice := Merge(once, x)
    if !reflect.DeepEqual(once, twice) {
        t.Fatalf("merge not idempotent:\n%v\n%v", once, twice)
    }
}

func TestMergeDropsUntitled(t *testing.T) {
    merged := Merge(nil, []Record{{Title: "", Location: "L"}, {Title: "Kept", Location: "L"}})
    if len(merged) != 1 || merged[0].Title != "Kept" {
        t.Fatalf("unexpected merge result %v", merged)
    }
}

func TestMergePreservesOrder(t *testing.T) {
    existing := []Record{{Title: "A", Location: "1"}, {Title: "B", Location: "2"}}
    incoming := []Record{{Title: "A", Location: "1", Description: "updated"}, {Title: "C", Location: "3"}}
    merged := Merge(existing, incoming)
    want := []string{"A", "B", "C"}
    for i, title := range want {
        if merged[i].Title != title {
            t.Fatalf("position %d: expected %s, got %s", i, title, merged[i].Title)
        }
    }
    if merged[0].Description != "updated" {
        t.Fatal("in-place update lost")
    }
}

func TestFilterStale(t *testing.T) {
    records := []Record{
        {Title: "past", Date: "2025-11-08", Location: "a"},
        {Title: "today", Date: "2025-11-09", Location: "b"},
        {Title: "dateless", Location: "c"},
        {Title: "exhibit", Time: "Ongoing through winter", Date: "2025-01-01", Location: "d"},
    }
    kept := FilterStale(records, "2025-11-09")
    if len(kept) != 3 {
        t.Fatalf("expected 3 kept, got %d: %v", len(kept), kept)
    }
    for _, rec := range kept {
        if rec.Title == "past" {
            t.Fatal("past event retained")
        }
    }
}

func TestSortByDateDatelessLast(t *testing.T) {
    records := []Record{
        {Title: "c", Location: "3"},
        {Title: "b", Date: "2025-12-01", Location: "2"},
        {Title: "a", Date: "2025-11-09", Location: "1"},
    }
    SortByDate(records)
    if records[0].Title != "a" || records[1].Title != "b" || records[2].Title != "c" {
        t.Fatalf("unexpected order %v", records)
    }
}

func TestBoundErrors(t *testing.T) {
    errs := []string{"1", "2", "3", "4", "5", "6", "7"}
    bounded := BoundErrors(errs)
    if len(bounded) != 5 || bounded[0] != "3" {
        t.Fatalf("unexpected bound %v", bounded)
    }
}

func TestHasCoordinatesAllOrNothing(t *testing.T) {
    r := Record{Title: "x", Lat: f64(40.7)}
    if r.HasCoordinates() {
        t.Fatal("lat alone must not count as coordinates")
    }
    r.Lng = f64(-73.9)
    if !r.HasCoordinates() {
        t.Fatal("expected coordinates present")
    }
}

func TestBusPublishSubscribe(t *testing.T) {
    bus := NewBus()
    ch := bus.Subscribe()
    bus.Publish(Completion{RunID: "r1", EventsScraped: 3})
    got := <-ch
    if got.RunID != "r1" || got.EventsScraped != 3 {
        t.Fatalf("unexpected completion %+v", got)
    }
}
