// Package ollama is a minimal client for the Ollama generate API, the
// single inference backend behind every handler.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTopP = 0.9

// Client calls an Ollama server's /api/generate endpoint. Safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	stats      *Stats
}

// NewClient builds a client for the given base URL, e.g.
// "http://localhost:11434". The timeout bounds each Generate call
// end to end, on top of any context deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stats: NewStats(time.Hour),
	}
}

// GenerateRequest describes one inference call. Images are base64
// encoded; an empty Model falls back to the server default.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Images      []string
	Temperature float64
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Images  []string `json:"images,omitempty"`
	Stream  bool     `json:"stream"`
	Options options  `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate runs one non-streaming completion and returns the model's
// text. Every failure is an *InferenceError so callers can treat
// timeouts, transport faults and bad statuses uniformly.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Images: req.Images,
		Stream: false,
		Options: options{
			Temperature: req.Temperature,
			TopP:        defaultTopP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.stats.RecordError()
		return "", &InferenceError{Model: req.Model, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		c.stats.RecordError()
		return "", &InferenceError{Model: req.Model, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.stats.RecordError()
		return "", &InferenceError{
			Model:      req.Model,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(respBody), 200),
		}
	}

	var apiResp generateResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		c.stats.RecordError()
		return "", &InferenceError{Model: req.Model, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if apiResp.Error != "" {
		c.stats.RecordError()
		return "", &InferenceError{Model: req.Model, Message: apiResp.Error}
	}

	c.stats.Record(time.Since(start).Milliseconds())
	return apiResp.Response, nil
}

// Stats exposes the client's latency and error aggregates.
func (c *Client) Stats() *Stats {
	return c.stats
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// InferenceError is any failed inference call: unreachable server,
// timeout, non-success status or an error reported by the model
// runtime. StatusCode is zero when no HTTP status was received.
type InferenceError struct {
	Model      string
	StatusCode int
	Message    string
	Cause      error
}

func (e *InferenceError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("inference (%s): %v", e.Model, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("inference (%s): status %d: %s", e.Model, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("inference (%s): %s", e.Model, e.Message)
	}
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}
