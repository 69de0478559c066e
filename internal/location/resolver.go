package location

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"
)

const (
    nominatimBase    = "https://nominatim.openstreetmap.org/search"
    nominatimAgent   = "Ephemera-NYC-Events-App"
    geocodeTimeout   = 5 * time.Second
    geocodeRateEvery = time.Second
)

// Resolver turns free-text locations into borough/neighborhood/coordinates.
// The static gazetteer is consulted first; the remote fallback is only used
// when the caller permits it and is throttled to one request per second.
type Resolver struct {
    client  *http.Client
    limiter *rate.Limiter
    baseURL string
    log     *logrus.Logger
}

func NewResolver(client *http.Client, log *logrus.Logger) *Resolver {
    if client == nil {
        client = &http.Client{Timeout: geocodeTimeout}
    }
    return &Resolver{
        client:  client,
        limiter: rate.NewLimiter(rate.Every(geocodeRateEvery), 1),
        baseURL: nominatimBase,
        log:     log,
    }
}

// SetBaseURL overrides the geocoding endpoint, for tests.
func (r *Resolver) SetBaseURL(u string) { r.baseURL = u }

// Resolve never returns an error: remote failures degrade to whatever the
// gazetteer produced, which may be an empty Result.
func (r *Resolver) Resolve(ctx context.Context, location string, allowRemote bool) Result {
    if location == "" {
        return Result{}
    }
    res := lookupStatic(location)
    if res.HasCoords || !allowRemote {
        return res
    }

    lat, lng, ok := r.geocode(ctx, location)
    if ok {
        res.Lat, res.Lng, res.HasCoords = lat, lng, true
    }
    return res
}

func (r *Resolver) geocode(ctx context.Context, address string) (float64, float64, bool) {
    if err := r.limiter.Wait(ctx); err != nil {
        return 0, 0, false
    }

    query := address
    if !strings.Contains(query, "New York") {
        query += ", New York City, NY"
    }
    endpoint := fmt.Sprintf("%s?q=%s&format=json&limit=1", r.baseURL, url.QueryEscape(query))

    ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
    defer cancel()
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
    if err != nil {
        return 0, 0, false
    }
    req.Header.Set("User-Agent", nominatimAgent)

    resp, err := r.client.Do(req)
    if err != nil {
        r.log.WithFields(logrus.Fields{"address": address, "error": err.Error()}).Debug("geocode request failed")
        return 0, 0, false
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        r.log.WithFields(logrus.Fields{"address": address, "status": resp.StatusCode}).Debug("geocode rejected")
        return 0, 0, false
    }

    var hits []struct {
        Lat string `json:"lat"`
        Lon string `json:"lon"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
        return 0, 0, false
    }
    if len(hits) == 0 {
        return 0, 0, false
    }
    lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
    lng, lngErr := strconv.ParseFloat(hits[0].Lon, 64)
    if latErr != nil || lngErr != nil {
        return 0, 0, false
    }
    return lat, lng, true
}
