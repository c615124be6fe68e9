// Package route decides which handler serves an inbound request. The
// decision is a fixed precedence over keyword matches, deliberately
// deterministic and auditable rather than learned.
package route

import (
	"fmt"
	"strings"
)

// Route is a handling path for a request.
type Route int

const (
	RouteChat Route = iota
	RouteDocument
	RouteSearch
	RouteCapabilities
	RouteError
)

func (r Route) String() string {
	switch r {
	case RouteChat:
		return "chat"
	case RouteDocument:
		return "document"
	case RouteSearch:
		return "search"
	case RouteCapabilities:
		return "capabilities"
	case RouteError:
		return "error"
	}
	return "unknown"
}

// Decision is the immutable outcome of classifying one request.
type Decision struct {
	Target Route
	Reason string
}

// Keywords holds the match lists for each keyword rule. The lists are
// plain data so deployments can tune routing without code changes;
// matching is case-insensitive substring containment, no stemming.
type Keywords struct {
	Capabilities []string `yaml:"capabilities"`
	Search       []string `yaml:"search"`
	Document     []string `yaml:"document"`
}

// DefaultKeywords returns the built-in match lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Capabilities: []string{
			"what can you do", "capabilities", "agents", "tools", "help",
		},
		Search: []string{
			"search", "find", "look up", "google", "web search", "internet search",
			"current", "latest", "recent", "news", "today", "now", "2024", "2025",
			"what is", "who is", "where is", "when is", "how to", "why is",
			"weather", "stock", "price", "news about", "information about",
			"tell me about", "find information", "look for", "search for",
		},
		Document: []string{
			"document", "pdf", "image", "parse", "extract", "analyze", "process",
			"ocr", "text", "table", "chart", "graph", "scan", "read", "understand",
			"content", "data", "information", "structure", "layout", "form",
			"invoice", "receipt", "contract", "report", "paper", "file",
			"what does this say", "what is in this", "explain this document",
			"summarize", "key points", "main ideas",
		},
	}
}

// Classifier routes messages by keyword precedence. It is pure: no
// backend calls, no state mutated by Classify, safe for concurrent use.
type Classifier struct {
	kw Keywords
}

// NewClassifier builds a classifier from the given keyword lists. Any
// empty list falls back to the built-in default for that rule.
func NewClassifier(kw Keywords) *Classifier {
	def := DefaultKeywords()
	if len(kw.Capabilities) == 0 {
		kw.Capabilities = def.Capabilities
	}
	if len(kw.Search) == 0 {
		kw.Search = def.Search
	}
	if len(kw.Document) == 0 {
		kw.Document = def.Document
	}
	return &Classifier{kw: kw}
}

// Classify picks a route for a message. Precedence, first match wins:
// an attachment always means document processing, then capability
// questions, then search intent, then document-analysis wording
// without an attachment, and anything else is plain chat.
func (c *Classifier) Classify(message string, hasAttachment bool) Decision {
	if hasAttachment {
		return Decision{
			Target: RouteDocument,
			Reason: "attachment present, routing to document pipeline",
		}
	}

	lower := strings.ToLower(message)

	if hits := matchAll(lower, c.kw.Capabilities); len(hits) > 0 {
		return Decision{
			Target: RouteCapabilities,
			Reason: fmt.Sprintf("capability keywords matched: %s", strings.Join(hits, ", ")),
		}
	}
	if hits := matchAll(lower, c.kw.Search); len(hits) > 0 {
		return Decision{
			Target: RouteSearch,
			Reason: fmt.Sprintf("search keywords matched: %s", strings.Join(hits, ", ")),
		}
	}
	if hits := matchAll(lower, c.kw.Document); len(hits) > 0 {
		return Decision{
			Target: RouteDocument,
			Reason: fmt.Sprintf("document keywords matched: %s", strings.Join(hits, ", ")),
		}
	}

	return Decision{Target: RouteChat, Reason: "no keywords matched, general conversation"}
}

func matchAll(lower string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
