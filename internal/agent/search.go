package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/agentgate/internal/ollama"
	"github.com/dgallion1/agentgate/internal/route"
	"github.com/dgallion1/agentgate/internal/search"
)

// maxSources caps how many result links appear in a search response.
const maxSources = 3

// search runs the query against the primary backend, falls back to the
// secondary when the primary errors or comes back empty, and asks the
// model to synthesize an answer from whatever results arrived.
func (d *Dispatcher) search(ctx context.Context, req Request) Result {
	query := strings.TrimSpace(req.Message)

	results, source, err := d.gatherResults(ctx, query)
	if err != nil {
		return Result{Response: searchFailureMessage(err), Route: route.RouteSearch}
	}
	if len(results) == 0 {
		msg := fmt.Sprintf("I could not find any web results for %q. Try rephrasing the question or asking about something else.", query)
		return Result{Response: msg, Route: route.RouteSearch}
	}

	answer, synthErr := d.llm.Generate(ctx, ollama.GenerateRequest{
		Model:       d.cfg.RouterModel,
		Prompt:      synthesisPrompt(query, req.Message, results),
		Temperature: synthesisTemperature,
	})
	answer = strings.TrimSpace(answer)
	if synthErr != nil || answer == "" {
		if synthErr != nil {
			d.log.Warn("search synthesis failed, listing raw results", "error", synthErr)
		}
		return Result{Response: formatRawResults(query, results, source), Route: route.RouteSearch}
	}
	return Result{
		Response: formatSynthesis(query, answer, results, source, d.cfg.RouterModel),
		Route:    route.RouteSearch,
	}
}

// gatherResults tries the primary backend first. Any error or an empty
// result set sends the query to the fallback. Primary failures are
// logged, never surfaced to the user.
func (d *Dispatcher) gatherResults(ctx context.Context, query string) ([]search.Result, string, error) {
	results, err := d.primary.Search(ctx, query)
	if err == nil && len(results) > 0 {
		return results, d.primary.Name(), nil
	}
	if err != nil {
		d.log.Warn("primary search failed, trying fallback",
			"backend", d.primary.Name(), "error", err)
	} else {
		d.log.Info("primary search returned nothing, trying fallback",
			"backend", d.primary.Name(), "query", query)
	}

	results, err = d.fallback.Search(ctx, query)
	if err != nil {
		d.log.Error("fallback search failed", "backend", d.fallback.Name(), "error", err)
		return nil, "", err
	}
	return results, d.fallback.Name(), nil
}

// searchFailureMessage translates a backend error into something a user
// can act on without leaking the raw error.
func searchFailureMessage(err error) string {
	var serr *search.SearchError
	if errors.As(err, &serr) {
		switch serr.StatusCode {
		case http.StatusUnauthorized:
			return "Web search is not configured: the search API rejected the access key. Please check the server configuration."
		case http.StatusTooManyRequests:
			return "Web search is rate limited right now. Please wait a moment and try again."
		case 0:
			if strings.Contains(serr.Message, "not configured") {
				return "Web search is not configured on this server, so I cannot look that up right now."
			}
		}
	}
	return "Web search is unavailable right now. Please try again later."
}

func formatSynthesis(query, answer string, results []search.Result, source, model string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Web Search Results for: %s**\n\n", query)
	b.WriteString("**Comprehensive Answer:**\n")
	b.WriteString(answer)
	b.WriteString("\n\n**Sources:**\n")
	for i, r := range results {
		if i >= maxSources {
			break
		}
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, r.Title, r.URL)
	}
	fmt.Fprintf(&b, "\n*Search powered by %s, analysis by %s*", source, model)
	return b.String()
}

// formatRawResults is the degraded rendering used when synthesis is
// unavailable: the top results speak for themselves.
func formatRawResults(query string, results []search.Result, source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Web Search Results for: %s**\n\n", query)
	for i, r := range results {
		if i >= maxSources {
			break
		}
		fmt.Fprintf(&b, "**%d. %s**\n%s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "%s\n", r.Snippet)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "*Search powered by %s*", source)
	return b.String()
}
