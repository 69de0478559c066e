package notify

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "time"
)

// Message is the outbound run-completion notice.
type Message struct {
    Text          string `json:"text"`
    RunID         string `json:"run_id,omitempty"`
    EventsScraped int    `json:"events_scraped,omitempty"`
}

// SendWebhook posts a run notice to the configured webhook if set.
func SendWebhook(ctx context.Context, webhookURL string, msg Message) error {
    if webhookURL == "" {
        return nil
    }
    buf, _ := json.Marshal(msg)
    ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(buf))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        return fmt.Errorf("webhook status %d", resp.StatusCode)
    }
    return nil
}
