package extract

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "time"

    "github.com/sirupsen/logrus"
)

const (
    firecrawlEndpoint = "https://api.firecrawl.dev/v1/scrape"
    scrapflyEndpoint  = "https://api.scrapfly.io/scrape"
    scrapeWaitMs      = 3000
    scrapeTimeoutMs   = 30000
)

// ErrNoContent means every scraping backend failed or returned nothing for
// the source. The orchestrator records it and moves on.
var ErrNoContent = errors.New("no content from any scraper")

// Scraper fetches page text, trying Firecrawl first and Scrapfly when
// Firecrawl fails or comes back empty.
type Scraper struct {
    client       *http.Client
    firecrawlKey string
    scrapflyKey  string
    firecrawlURL string
    scrapflyURL  string
    log          *logrus.Logger
}

func NewScraper(client *http.Client, firecrawlKey, scrapflyKey string, log *logrus.Logger) *Scraper {
    if client == nil {
        client = &http.Client{Timeout: 45 * time.Second}
    }
    return &Scraper{
        client:       client,
        firecrawlKey: firecrawlKey,
        scrapflyKey:  scrapflyKey,
        firecrawlURL: firecrawlEndpoint,
        scrapflyURL:  scrapflyEndpoint,
        log:          log,
    }
}

// SetEndpoints overrides the backend URLs, for tests.
func (s *Scraper) SetEndpoints(firecrawl, scrapfly string) {
    s.firecrawlURL = firecrawl
    s.scrapflyURL = scrapfly
}

// Fetch returns the page content and which backend produced it.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (string, string, error) {
    content, err := s.firecrawl(ctx, pageURL)
    if err == nil && content != "" {
        return content, "firecrawl", nil
    }
    if err != nil {
        s.log.WithFields(logrus.Fields{"source": pageURL, "error": err.Error()}).Info("firecrawl failed, trying scrapfly")
    }

    content, err = s.scrapfly(ctx, pageURL)
    if err == nil && content != "" {
        return content, "scrapfly", nil
    }
    if err != nil {
        s.log.WithFields(logrus.Fields{"source": pageURL, "error": err.Error()}).Info("scrapfly failed")
    }
    return "", "", ErrNoContent
}

func (s *Scraper) firecrawl(ctx context.Context, pageURL string) (string, error) {
    payload := map[string]any{
        "url":     pageURL,
        "formats": []string{"markdown", "html"},
        "waitFor": scrapeWaitMs,
        "timeout": scrapeTimeoutMs,
    }
    buf, _ := json.Marshal(payload)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.firecrawlURL, bytes.NewReader(buf))
    if err != nil {
        return "", err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Authorization", "Bearer "+s.firecrawlKey)

    resp, err := s.client.Do(req)
    if err != nil {
        return "", err
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        return "", fmt.Errorf("firecrawl status %d", resp.StatusCode)
    }
    var body struct {
        Data struct {
            Markdown string `json:"markdown"`
            HTML     string `json:"html"`
        } `json:"data"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return "", err
    }
    if body.Data.Markdown != "" {
        return body.Data.Markdown, nil
    }
    return body.Data.HTML, nil
}

func (s *Scraper) scrapfly(ctx context.Context, pageURL string) (string, error) {
    q := url.Values{}
    q.Set("key", s.scrapflyKey)
    q.Set("url", pageURL)
    q.Set("render_js", "true")
    q.Set("format", "markdown")
    q.Set("asp", "true")

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.scrapflyURL+"?"+q.Encode(), nil)
    if err != nil {
        return "", err
    }
    resp, err := s.client.Do(req)
    if err != nil {
        return "", err
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        return "", fmt.Errorf("scrapfly status %d", resp.StatusCode)
    }
    var body struct {
        Result struct {
            Content string `json:"content"`
        } `json:"result"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return "", err
    }
    return body.Result.Content, nil
}
