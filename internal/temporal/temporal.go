package temporal

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
    "time"
)

// Eastern is the civil reference timezone for every date in the pipeline.
var Eastern = mustLoadEastern()

func mustLoadEastern() *time.Location {
    loc, err := time.LoadLocation("America/New_York")
    if err != nil {
        panic(err)
    }
    return loc
}

// Today formats now's civil date in Eastern time as YYYY-MM-DD.
func Today(now time.Time) string {
    return now.In(Eastern).Format("2006-01-02")
}

// Result is the outcome of normalizing one raw time string.
type Result struct {
    Date    string // YYYY-MM-DD, empty when no date could be extracted
    Display string // human time string, weekday tokens rewritten to month+day
    Ongoing bool   // open-ended listing, dateless but retained
}

var monthNumbers = map[string]time.Month{
    "january": time.January, "february": time.February, "march": time.March,
    "april": time.April, "may": time.May, "june": time.June, "july": time.July,
    "august": time.August, "september": time.September, "october": time.October,
    "november": time.November, "december": time.December,
    "jan": time.January, "feb": time.February, "mar": time.March,
    "apr": time.April, "jun": time.June, "jul": time.July, "aug": time.August,
    "sep": time.September, "oct": time.October, "nov": time.November,
    "dec": time.December,
}

// Word boundaries keep "mar" from matching inside "market" and "may" inside
// "maybe". Day number must follow within a short non-digit gap.
var monthDayRe = regexp.MustCompile(`(?i)\b(january|february|march|april|june|july|august|september|october|november|december|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\b[^0-9]{0,10}?(\d{1,2})\b`)

var monthNameRe = regexp.MustCompile(`(?i)\b(january|february|march|april|june|july|august|september|october|november|december|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\b`)

var weekdayRe = regexp.MustCompile(`(?i)\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday|sun|mon|tues|tue|wed|thurs|thur|thu|fri|sat)\b`)

var weekdayNumbers = map[string]time.Weekday{
    "sunday": time.Sunday, "sun": time.Sunday,
    "monday": time.Monday, "mon": time.Monday,
    "tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
    "wednesday": time.Wednesday, "wed": time.Wednesday,
    "thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
    "friday": time.Friday, "fri": time.Friday,
    "saturday": time.Saturday, "sat": time.Saturday,
}

// Normalize turns a raw extracted time phrase into a canonical civil date and
// a display string. It is pure: the only time source is the provided now.
func Normalize(rawTime string, now time.Time) Result {
    raw := strings.TrimSpace(rawTime)
    if raw == "" {
        return Result{Display: rawTime}
    }
    lower := strings.ToLower(raw)
    if strings.Contains(lower, "ongoing") || strings.Contains(lower, "permanent") {
        return Result{Display: raw, Ongoing: true}
    }

    display := resolveWeekday(raw, now)
    date := parseMonthDay(display, now)
    return Result{Date: date, Display: display}
}

// InferDate validates an extractor-provided date, falling back to parsing the
// time string. Returns empty when neither yields a date.
func InferDate(date, timeStr string, now time.Time) string {
    if isCanonicalDate(date) {
        return date
    }
    return parseMonthDay(timeStr, now)
}

var canonicalDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func isCanonicalDate(s string) bool {
    if !canonicalDateRe.MatchString(s) {
        return false
    }
    _, err := time.ParseInLocation("2006-01-02", s, Eastern)
    return err == nil
}

// resolveWeekday rewrites a weekday-only reference to the concrete next
// occurrence. Strings that already carry a month name pass through.
func resolveWeekday(raw string, now time.Time) string {
    if monthNameRe.MatchString(raw) {
        return raw
    }
    match := weekdayRe.FindString(raw)
    if match == "" {
        return raw
    }
    target, ok := weekdayNumbers[strings.ToLower(match)]
    if !ok {
        return raw
    }

    today := civilMidnight(now)
    daysUntil := (int(target) - int(today.Weekday()) + 7) % 7
    if strings.Contains(strings.ToLower(raw), "next") {
        daysUntil += 7
    }
    resolved := today.AddDate(0, 0, daysUntil)

    replacement := fmt.Sprintf("%s %d, ", resolved.Month().String(), resolved.Day())
    re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(match) + `\b\s*,?\s*`)
    out := re.ReplaceAllString(raw, replacement)
    return strings.TrimSpace(out)
}

// parseMonthDay extracts an explicit month+day and infers the year: current
// year unless that lands more than 30 civil days in the past, then next
// year. The grace window tolerates listings for events that just happened.
// The comparison is in civil days, not wall-clock hours, so a DST shift
// inside the window cannot push a boundary date across it.
func parseMonthDay(s string, now time.Time) string {
    m := monthDayRe.FindStringSubmatch(s)
    if m == nil {
        return ""
    }
    month, ok := monthNumbers[strings.ToLower(m[1])]
    if !ok {
        return ""
    }
    day, err := strconv.Atoi(m[2])
    if err != nil || day < 1 || day > 31 {
        return ""
    }

    today := civilMidnight(now)
    year := today.Year()
    candidate := time.Date(year, month, day, 0, 0, 0, 0, Eastern)
    if candidate.Before(today.AddDate(0, 0, -30)) {
        candidate = time.Date(year+1, month, day, 0, 0, 0, 0, Eastern)
    }
    return candidate.Format("2006-01-02")
}

func civilMidnight(now time.Time) time.Time {
    et := now.In(Eastern)
    return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, Eastern)
}
