// Package agent executes routed requests. The Dispatcher owns one pass
// per request: classify, run the chosen handler against the inference
// and search backends, and always come back with a user-facing answer.
// Backend failures degrade to apologetic text; nothing here returns an
// error to the transport layer.
package agent

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgallion1/agentgate/internal/ollama"
	"github.com/dgallion1/agentgate/internal/route"
	"github.com/dgallion1/agentgate/internal/search"
	"github.com/dgallion1/agentgate/internal/store"
)

// Temperatures per call site. Conversation stays warm, synthesis and
// summaries stay focused, structured extraction runs cold.
const (
	chatTemperature      = 0.7
	synthesisTemperature = 0.3
	summaryTemperature   = 0.3
	visionTemperature    = 0.0
	rescueTemperature    = 0.1
)

// contextTurns is how many past exchanges are folded into a prompt.
const contextTurns = 3

// Inferencer is the single capability the dispatcher needs from the
// model backend.
type Inferencer interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (string, error)
}

// Searcher is one web search backend.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// History is the session memory the chat path reads and writes.
type History interface {
	AppendExchange(ctx context.Context, ex store.Exchange) error
	RecentExchanges(ctx context.Context, sessionID string, n int) ([]store.Exchange, error)
}

// Config carries the model names the dispatcher addresses.
type Config struct {
	RouterModel string
	VisionModel string
}

// Request is one inbound turn. Attachment is nil when the request
// carries no file.
type Request struct {
	Message    string
	SessionID  string
	Attachment *Attachment
}

// Attachment references an uploaded file on disk.
type Attachment struct {
	Path        string
	Filename    string
	ContentType string
}

// Result is the outcome of one handled request. Route reports which
// handler produced the response.
type Result struct {
	Response string
	Route    route.Route
}

// Dispatcher routes and executes requests. Safe for concurrent use:
// per-request state lives on the stack, shared state is the tag ring
// and counters, both synchronized.
type Dispatcher struct {
	cfg        Config
	classifier *route.Classifier
	llm        Inferencer
	primary    Searcher
	fallback   Searcher
	history    History
	tags       *TagRing
	log        *slog.Logger

	routeCounts [5]atomic.Int64
}

func NewDispatcher(cfg Config, classifier *route.Classifier, llm Inferencer, primary, fallback Searcher, history History, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		classifier: classifier,
		llm:        llm,
		primary:    primary,
		fallback:   fallback,
		history:    history,
		tags:       NewTagRing(8),
		log:        log,
	}
}

// Tags exposes the ring of recent raw tag streams for inspection.
func (d *Dispatcher) Tags() *TagRing {
	return d.tags
}

// RouteCounts reports how many requests each route has served.
func (d *Dispatcher) RouteCounts() map[string]int64 {
	counts := make(map[string]int64, len(d.routeCounts))
	for i := range d.routeCounts {
		counts[route.Route(i).String()] = d.routeCounts[i].Load()
	}
	return counts
}

// Handle runs one request end to end. It never fails: every path,
// including total backend outage, terminates in a Result carrying
// user-facing text.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Result {
	decision := d.classifier.Classify(req.Message, req.Attachment != nil)
	d.log.Debug("request classified",
		"route", decision.Target.String(),
		"reason", decision.Reason,
		"session", req.SessionID)

	var res Result
	switch decision.Target {
	case route.RouteDocument:
		if req.Attachment == nil {
			// Document wording without a file to process: answer in
			// conversation, where the session context may still hold
			// the earlier extraction.
			res = d.chat(ctx, req)
			break
		}
		res = d.document(ctx, req)
	case route.RouteSearch:
		res = d.search(ctx, req)
	case route.RouteCapabilities:
		res = d.capabilities(ctx, req)
	default:
		res = d.chat(ctx, req)
	}

	if res.Route >= 0 && int(res.Route) < len(d.routeCounts) {
		d.routeCounts[res.Route].Add(1)
	}
	return res
}

// remember appends a turn to session memory. Only conversational
// routes feed the context window; extraction and search output would
// drown it.
func (d *Dispatcher) remember(ctx context.Context, req Request, res Result) {
	if d.history == nil || req.SessionID == "" {
		return
	}
	err := d.history.AppendExchange(ctx, store.Exchange{
		SessionID: req.SessionID,
		User:      req.Message,
		Assistant: res.Response,
		Route:     res.Route.String(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		d.log.Warn("failed to store exchange", "error", err, "session", req.SessionID)
	}
}

// recent fetches the session's context window, tolerating a missing or
// failing history store.
func (d *Dispatcher) recent(ctx context.Context, sessionID string) []store.Exchange {
	if d.history == nil || sessionID == "" {
		return nil
	}
	exchanges, err := d.history.RecentExchanges(ctx, sessionID, contextTurns)
	if err != nil {
		d.log.Warn("failed to load session context", "error", err, "session", sessionID)
		return nil
	}
	return exchanges
}
