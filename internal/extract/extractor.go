package extract

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"

    "ephemera/internal/events"
)

// ErrParse means the model output could not be salvaged into records.
var ErrParse = errors.New("no parseable records in model output")

const categories = `"Cultural & Arts", "Fitness & Wellness", "Sports & Recreation", "Markets & Shopping", "Community & Volunteering", "Food & Dining", "Holiday & Seasonal", "Professional & Networking", "Educational & Literary"`

// Extractor turns scraped page text into candidate event records.
type Extractor struct {
    client   *Client
    maxChars int
}

func NewExtractor(client *Client, maxChars int) *Extractor {
    return &Extractor{client: client, maxChars: maxChars}
}

// Extract calls the model once per page and parses the response best-effort.
// Candidates without a title are dropped; everything else is passed through
// untouched for the normalizer and resolver to finish.
func (e *Extractor) Extract(ctx context.Context, pageText string) ([]events.Record, error) {
    text := pageText
    if len(text) > e.maxChars {
        text = text[:e.maxChars]
    }
    out, err := e.client.Complete(ctx, buildExtractionPrompt(text), 8192)
    if err != nil {
        return nil, err
    }
    records, err := parseRecords(out)
    if err != nil {
        return nil, err
    }
    kept := records[:0]
    for _, rec := range records {
        if strings.TrimSpace(rec.Title) != "" {
            rec.Title = strings.TrimSpace(rec.Title)
            kept = append(kept, rec)
        }
    }
    return kept, nil
}

func buildExtractionPrompt(pageText string) string {
    return fmt.Sprintf(`You are an event extraction system. Extract EVERY SINGLE event from this NYC events page.

For each event, provide:
- title: The event name
- description: Brief description (2-3 sentences max)
- date: The event date in YYYY-MM-DD format (e.g. "2026-02-15"). For multi-day events, use the START date.
- time: FULL date and time (MUST include the MONTH and DAY NUMBER like "November 9" or "Dec 15", plus the time like "7:00 PM". NEVER use day-of-week names like "Saturday" or "Thursday" alone!)
- location: Where it takes place (be specific, include neighborhood or venue name)
- category: Choose ONE category that best fits the event from these options: %s
- link: URL to event page (if available)
- ticketLink: URL to buy tickets (if available)

CRITICAL REQUIREMENTS FOR DATES:
1. ALWAYS use MONTH + DAY format: "November 9", "December 15", "Jan 20"
2. NEVER use ONLY day-of-week names like "Saturday", "Thursday", "Monday"
3. NEVER use relative dates like "Today", "Tomorrow", "This Weekend"
4. If the page shows "Saturday, November 9 at 7:00 PM" - extract as "November 9, 7:00 PM"
5. Look for date indicators in headings, sections, calendars, or near the event to find the actual date
6. It's better to skip an event than to use a day-of-week name without the actual date
7. SKIP events that are "ongoing", "permanent", or have no specific date - we only want events with concrete dates

OTHER REQUIREMENTS:
1. Extract EVERY SINGLE event on the page - DO NOT stop after a few events
2. If there are 100 events on the page, extract all 100
3. For the category field, analyze the event content and assign the most appropriate category

Return ONLY a valid JSON array of events, nothing else. NO explanatory text, NO comments.
Format:
[{"title":"...","date":"YYYY-MM-DD","description":"...","time":"...","location":"...","category":"...","link":"...","ticketLink":"..."}]

Content to parse:
%s`, categories, pageText)
}

// parseRecords salvages records from model output: first JSON array found by
// bracket scanning, else an object with a nested "events" array.
func parseRecords(output string) ([]events.Record, error) {
    if arr := FirstJSONArray(output); arr != "" {
        var records []events.Record
        if err := json.Unmarshal([]byte(arr), &records); err == nil {
            return records, nil
        }
    }
    if obj := FirstJSONObject(output); obj != "" {
        var wrapper struct {
            Events []events.Record `json:"events"`
        }
        if err := json.Unmarshal([]byte(obj), &wrapper); err == nil && wrapper.Events != nil {
            return wrapper.Events, nil
        }
        // Single-event object, as some sources return.
        var one events.Record
        if err := json.Unmarshal([]byte(obj), &one); err == nil && one.Title != "" {
            return []events.Record{one}, nil
        }
    }
    return nil, ErrParse
}

// FirstJSONArray returns the first balanced JSON array in input, or empty.
func FirstJSONArray(input string) string {
    return extractDelimited(input, '[', ']')
}

// FirstJSONObject returns the first balanced JSON object in input, or empty.
func FirstJSONObject(input string) string {
    return extractDelimited(input, '{', '}')
}

// extractDelimited returns the first balanced region between open and close,
// skipping string literals and escapes.
func extractDelimited(input string, open, close byte) string {
    start := strings.IndexByte(input, open)
    if start == -1 {
        return ""
    }
    depth := 0
    inString := false
    escaped := false
    for i := start; i < len(input); i++ {
        ch := input[i]
        if inString {
            if escaped {
                escaped = false
                continue
            }
            if ch == '\\' {
                escaped = true
                continue
            }
            if ch == '"' {
                inString = false
            }
            continue
        }
        switch ch {
        case '"':
            inString = true
        case open:
            depth++
        case close:
            depth--
            if depth == 0 {
                return input[start : i+1]
            }
        }
    }
    return ""
}
