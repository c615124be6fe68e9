// Package search holds the web search backends: a self-hosted SearXNG
// instance as the primary and the Brave Search API as the paid
// fallback. Both return the same bounded result shape so the caller
// can swap them freely.
package search

import "fmt"

// MaxResults bounds how many results any backend returns.
const MaxResults = 5

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchError is any failed search call. StatusCode is zero when no
// HTTP status was received (transport failure, timeout).
type SearchError struct {
	Backend    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *SearchError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("search (%s): %v", e.Backend, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("search (%s): status %d: %s", e.Backend, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("search (%s): %s", e.Backend, e.Message)
	}
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}
