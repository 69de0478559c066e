package extract

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"
)

const (
    anthropicEndpoint = "https://api.anthropic.com/v1/messages"
    anthropicVersion  = "2023-06-01"
)

// Client is a minimal Anthropic messages API caller shared by extraction and
// enrichment.
type Client struct {
    http     *http.Client
    endpoint string
    apiKey   string
    model    string
}

func NewClient(httpClient *http.Client, apiKey, model string) *Client {
    if httpClient == nil {
        httpClient = &http.Client{Timeout: 120 * time.Second}
    }
    return &Client{http: httpClient, endpoint: anthropicEndpoint, apiKey: apiKey, model: model}
}

// SetEndpoint overrides the API URL, for tests.
func (c *Client) SetEndpoint(u string) { c.endpoint = u }

func (c *Client) Model() string { return c.model }

// Complete sends one user message and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
    payload := map[string]any{
        "model":      c.model,
        "max_tokens": maxTokens,
        "messages": []map[string]string{
            {"role": "user", "content": prompt},
        },
    }
    buf, _ := json.Marshal(payload)

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
    if err != nil {
        return "", err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("x-api-key", c.apiKey)
    req.Header.Set("anthropic-version", anthropicVersion)

    resp, err := c.http.Do(req)
    if err != nil {
        return "", err
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
        return "", fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(body))
    }

    var wrapper struct {
        Content []struct {
            Type string `json:"type"`
            Text string `json:"text"`
        } `json:"content"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
        return "", err
    }
    var b strings.Builder
    for _, block := range wrapper.Content {
        if block.Type == "text" {
            b.WriteString(block.Text)
        }
    }
    if b.Len() == 0 {
        return "", errors.New("empty model response")
    }
    return b.String(), nil
}
