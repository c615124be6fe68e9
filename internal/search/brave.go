package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// BraveClient queries the Brave Search API. It is the commercial
// fallback, used only when the primary backend fails or comes back
// empty.
type BraveClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewBraveClient(apiKey string, timeout time.Duration) *BraveClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BraveClient{
		apiKey:   apiKey,
		endpoint: braveEndpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *BraveClient) Name() string {
	return "Brave Search API"
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs one query against the Brave API.
func (c *BraveClient) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, &SearchError{Backend: c.Name(), Message: "api key not configured"}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(MaxResults))
	params.Set("offset", "0")
	params.Set("mkt", "en-US")
	params.Set("safesearch", "moderate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

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

	var apiResp braveResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &SearchError{Backend: c.Name(), Cause: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, MaxResults)
	for _, r := range apiResp.Web.Results {
		if len(results) == MaxResults {
			break
		}
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
	}
	return results, nil
}
