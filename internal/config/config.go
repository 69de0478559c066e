package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

// Config holds all environment-driven settings.
type Config struct {
    HTTPPort        string
    RedisURL        string
    AnthropicKey    string
    FirecrawlKey    string
    ScrapflyKey     string
    SourcesPath     string
    JournalPath     string
    ScrapeInterval  time.Duration
    StaleRunAfter   time.Duration
    GeocodeBatch    int
    EnrichBatch     int
    MaxContentChars int
    ExtractModel    string
    QueueSize       int
    EnableScheduler bool
    EnableWatcher   bool
    NotifyWebhook   string
    LogLevel        string
    Environment     string
}

// Load reads configuration from environment and optional .env file.
func Load() Config {
    _ = godotenv.Load()

    return Config{
        HTTPPort:        getenv("PORT", "8080"),
        RedisURL:        getenv("REDIS_URL", ""),
        AnthropicKey:    getenv("ANTHROPIC_API_KEY", ""),
        FirecrawlKey:    getenv("FIRECRAWL_API_KEY", ""),
        ScrapflyKey:     getenv("SCRAPFLY_API_KEY", ""),
        SourcesPath:     getenv("SOURCES_PATH", "./config/sources.yaml"),
        JournalPath:     getenv("JOURNAL_PATH", "./ephemera.db"),
        ScrapeInterval:  time.Duration(clampInt(getenvInt("SCRAPE_INTERVAL_HOURS", 48), 1, 24*14)) * time.Hour,
        StaleRunAfter:   time.Duration(clampInt(getenvInt("STALE_RUN_MINUTES", 10), 1, 240)) * time.Minute,
        GeocodeBatch:    clampInt(getenvInt("GEOCODE_BATCH", 10), 1, 100),
        EnrichBatch:     clampInt(getenvInt("ENRICH_BATCH", 25), 1, 100),
        MaxContentChars: clampInt(getenvInt("MAX_CONTENT_CHARS", 200000), 1000, 1000000),
        ExtractModel:    getenv("EXTRACT_MODEL", "claude-haiku-4-5"),
        QueueSize:       clampInt(getenvInt("QUEUE_SIZE", 16), 1, 256),
        EnableScheduler: getenvBool("ENABLE_SCHEDULER", true),
        EnableWatcher:   getenvBool("ENABLE_WATCHER", true),
        NotifyWebhook:   getenv("NOTIFY_WEBHOOK_URL", ""),
        LogLevel:        getenv("LOG_LEVEL", "info"),
        Environment:     getenv("ENVIRONMENT", "local"),
    }
}

// Validate fails fast when a required credential is absent. No run may start
// with a missing key, so this is checked before anything else is wired.
func (c Config) Validate() error {
    if c.AnthropicKey == "" {
        return fmt.Errorf("ANTHROPIC_API_KEY is required")
    }
    if c.FirecrawlKey == "" {
        return fmt.Errorf("FIRECRAWL_API_KEY is required")
    }
    if c.ScrapflyKey == "" {
        return fmt.Errorf("SCRAPFLY_API_KEY is required")
    }
    return nil
}

// SourcesFile is the on-disk shape of the source list.
type SourcesFile struct {
    Sources []string `yaml:"sources"`
}

// LoadSources reads the scrape source URL list from the yaml file.
func LoadSources(path string) ([]string, error) {
    raw, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read sources: %w", err)
    }
    var file SourcesFile
    if err := yaml.Unmarshal(raw, &file); err != nil {
        return nil, fmt.Errorf("parse sources: %w", err)
    }
    out := make([]string, 0, len(file.Sources))
    for _, s := range file.Sources {
        if s != "" {
            out = append(out, s)
        }
    }
    if len(out) == 0 {
        return nil, fmt.Errorf("sources file %s lists no sources", path)
    }
    return out, nil
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    return v
}

func getenvInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return def
    }
    return n
}

func getenvBool(key string, def bool) bool {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    b, err := strconv.ParseBool(v)
    if err != nil {
        return def
    }
    return b
}

func clampInt(v, min, max int) int {
    if v < min {
        return min
    }
    if v > max {
        return max
    }
    return v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
    return time.Now().UTC().Truncate(time.Second)
}
