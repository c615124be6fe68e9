package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SearxClient queries a SearXNG instance's JSON API.
type SearxClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSearxClient(baseURL string, timeout time.Duration) *SearxClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearxClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the backend in logs and response footers.
func (c *SearxClient) Name() string {
	return "SearXNG"
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs one query. An empty result list with a nil error means
// the instance answered but found nothing; the caller decides whether
// that warrants the fallback backend.
func (c *SearxClient) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SearchError{Backend: c.Name(), Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &SearchError{Backend: c.Name(), Cause: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{
			Backend:    c.Name(),
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 200),
		}
	}

	var apiResp searxResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &SearchError{Backend: c.Name(), Cause: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, MaxResults)
	for _, r := range apiResp.Results {
		if len(results) == MaxResults {
			break
		}
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
