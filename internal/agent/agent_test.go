package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/agentgate/internal/ollama"
	"github.com/dgallion1/agentgate/internal/route"
	"github.com/dgallion1/agentgate/internal/search"
	"github.com/dgallion1/agentgate/internal/store"
)

type fakeLLM struct {
	response string
	err      error
	fn       func(req ollama.GenerateRequest) (string, error)
	calls    []ollama.GenerateRequest
}

func (f *fakeLLM) Generate(ctx context.Context, req ollama.GenerateRequest) (string, error) {
	f.calls = append(f.calls, req)
	if f.fn != nil {
		return f.fn(req)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeSearcher struct {
	name    string
	results []search.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type memHistory struct {
	exchanges []store.Exchange
}

func (m *memHistory) AppendExchange(ctx context.Context, ex store.Exchange) error {
	m.exchanges = append(m.exchanges, ex)
	return nil
}

func (m *memHistory) RecentExchanges(ctx context.Context, sessionID string, n int) ([]store.Exchange, error) {
	var out []store.Exchange
	for _, ex := range m.exchanges {
		if ex.SessionID == sessionID {
			out = append(out, ex)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func newTestDispatcher(llm Inferencer, primary, fallback Searcher, history History) *Dispatcher {
	cfg := Config{RouterModel: "router-test", VisionModel: "vision-test"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(cfg, route.NewClassifier(route.DefaultKeywords()), llm, primary, fallback, history, log)
}

func writeAttachment(t *testing.T, content []byte) *Attachment {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.jpg")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write attachment: %v", err)
	}
	return &Attachment{Path: path, Filename: "page.jpg", ContentType: "image/jpeg"}
}

// Every route must produce a helpful response even when every backend
// is down.
func TestDispatcher_FailClosed(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	down := errors.New("search backend down")
	primary := &fakeSearcher{name: "SearXNG", err: down}
	fallback := &fakeSearcher{name: "Brave Search API", err: down}
	d := newTestDispatcher(llm, primary, fallback, &memHistory{})

	att := writeAttachment(t, []byte("jpeg-bytes"))
	cases := []struct {
		name string
		req  Request
		want route.Route
	}{
		{"chat", Request{Message: "hello there", SessionID: "s1"}, route.RouteChat},
		{"search", Request{Message: "search for go generics", SessionID: "s1"}, route.RouteSearch},
		{"capabilities", Request{Message: "what can you do", SessionID: "s1"}, route.RouteCapabilities},
		{"document", Request{Message: "read this", SessionID: "s1", Attachment: att}, route.RouteDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := d.Handle(context.Background(), tc.req)
			if res.Route != tc.want {
				t.Fatalf("route = %q, want %q", res.Route, tc.want)
			}
			if strings.TrimSpace(res.Response) == "" {
				t.Fatal("empty response with backends down")
			}
			if strings.Contains(res.Response, "connection refused") {
				t.Fatalf("raw backend error leaked into response: %q", res.Response)
			}
		})
	}
}

func TestDispatcher_SearchFallsBackOnPrimaryError(t *testing.T) {
	llm := &fakeLLM{response: "Generics were added in Go 1.18."}
	primary := &fakeSearcher{name: "SearXNG", err: errors.New("dial tcp: timeout")}
	fallback := &fakeSearcher{name: "Brave Search API", results: []search.Result{
		{Title: "Go 1.18 Release Notes", URL: "https://go.dev/doc/go1.18", Snippet: "Generics land"},
		{Title: "Tutorial: Generics", URL: "https://go.dev/doc/tutorial/generics", Snippet: "Intro"},
		{Title: "Type Parameters Proposal", URL: "https://go.dev/design/43651", Snippet: "Design"},
	}}
	d := newTestDispatcher(llm, primary, fallback, &memHistory{})

	res := d.Handle(context.Background(), Request{Message: "search for go generics", SessionID: "s1"})
	if res.Route != route.RouteSearch {
		t.Fatalf("route = %q, want search", res.Route)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("calls primary=%d fallback=%d, want 1 and 1", primary.calls, fallback.calls)
	}
	for _, url := range []string{"https://go.dev/doc/go1.18", "https://go.dev/doc/tutorial/generics", "https://go.dev/design/43651"} {
		if !strings.Contains(res.Response, url) {
			t.Errorf("response missing source %q", url)
		}
	}
	if !strings.Contains(res.Response, "Brave Search API") {
		t.Error("response does not credit the backend that answered")
	}
	if strings.Contains(res.Response, "SearXNG") || strings.Contains(res.Response, "timeout") {
		t.Fatalf("primary failure leaked into response: %q", res.Response)
	}
}

func TestDispatcher_SearchFallsBackOnEmptyPrimary(t *testing.T) {
	llm := &fakeLLM{response: "answer"}
	primary := &fakeSearcher{name: "SearXNG"}
	fallback := &fakeSearcher{name: "Brave Search API", results: []search.Result{
		{Title: "Result", URL: "https://example.com", Snippet: "text"},
	}}
	d := newTestDispatcher(llm, primary, fallback, &memHistory{})

	res := d.Handle(context.Background(), Request{Message: "search for something obscure"})
	if fallback.calls != 1 {
		t.Fatalf("fallback.calls = %d, want 1", fallback.calls)
	}
	if !strings.Contains(res.Response, "https://example.com") {
		t.Fatalf("response missing fallback result: %q", res.Response)
	}
}

func TestDispatcher_SearchBothEmpty(t *testing.T) {
	llm := &fakeLLM{response: "unused"}
	d := newTestDispatcher(llm, &fakeSearcher{name: "SearXNG"}, &fakeSearcher{name: "Brave Search API"}, &memHistory{})

	res := d.Handle(context.Background(), Request{Message: "search for nothing at all"})
	if res.Route != route.RouteSearch {
		t.Fatalf("route = %q, want search", res.Route)
	}
	if !strings.Contains(res.Response, "could not find") {
		t.Fatalf("response = %q, want a no-results explanation", res.Response)
	}
	if len(llm.calls) != 0 {
		t.Fatalf("synthesis ran on empty results: %d calls", len(llm.calls))
	}
}

func TestDispatcher_SearchNotConfigured(t *testing.T) {
	llm := &fakeLLM{response: "unused"}
	primary := &fakeSearcher{name: "SearXNG", err: errors.New("connection refused")}
	fallback := &fakeSearcher{name: "Brave Search API", err: &search.SearchError{
		Backend: "Brave Search API", Message: "api key not configured",
	}}
	d := newTestDispatcher(llm, primary, fallback, &memHistory{})

	res := d.Handle(context.Background(), Request{Message: "search for anything"})
	if !strings.Contains(res.Response, "not configured") {
		t.Fatalf("response = %q, want a configuration hint", res.Response)
	}
}

func TestDispatcher_SearchRateLimited(t *testing.T) {
	llm := &fakeLLM{response: "unused"}
	primary := &fakeSearcher{name: "SearXNG", err: errors.New("down")}
	fallback := &fakeSearcher{name: "Brave Search API", err: &search.SearchError{
		Backend: "Brave Search API", StatusCode: 429, Message: "rate limit exceeded",
	}}
	d := newTestDispatcher(llm, primary, fallback, &memHistory{})

	res := d.Handle(context.Background(), Request{Message: "search for anything"})
	if !strings.Contains(res.Response, "rate limited") {
		t.Fatalf("response = %q, want a rate limit hint", res.Response)
	}
}

func TestDispatcher_SynthesisFailureListsResults(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model not loaded")}
	primary := &fakeSearcher{name: "SearXNG", results: []search.Result{
		{Title: "First", URL: "https://a.example", Snippet: "aa"},
		{Title: "Second", URL: "https://b.example", Snippet: "bb"},
		{Title: "Third", URL: "https://c.example", Snippet: "cc"},
		{Title: "Fourth", URL: "https://d.example", Snippet: "dd"},
	}}
	d := newTestDispatcher(llm, primary, &fakeSearcher{name: "Brave Search API"}, &memHistory{})

	res := d.Handle(context.Background(), Request{Message: "search for fallback"})
	for _, want := range []string{"First", "Second", "Third", "SearXNG"} {
		if !strings.Contains(res.Response, want) {
			t.Errorf("response missing %q", want)
		}
	}
	if strings.Contains(res.Response, "Fourth") {
		t.Error("degraded listing should cap at three results")
	}
	if strings.Contains(res.Response, "model not loaded") {
		t.Fatalf("synthesis error leaked: %q", res.Response)
	}
}

// A document-sounding message with no attachment is ordinary chat. The
// session may still carry an earlier extraction in its history.
func TestDispatcher_DocumentIntentWithoutAttachment(t *testing.T) {
	llm := &fakeLLM{response: "Here is the gist of the report."}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, &memHistory{})

	res := d.Handle(context.Background(), Request{Message: "summarize the report please", SessionID: "s1"})
	if res.Route != route.RouteChat {
		t.Fatalf("route = %q, want chat", res.Route)
	}
	if res.Response != "Here is the gist of the report." {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestDispatcher_DocumentTagPath(t *testing.T) {
	stream := "<doctag><title>Quarterly Report</title><text>Revenue grew across every region this quarter.</text></doctag>"
	llm := &fakeLLM{fn: func(req ollama.GenerateRequest) (string, error) {
		if req.Model == "vision-test" {
			return stream, nil
		}
		return "", errors.New("router should not run on the tag path")
	}}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, &memHistory{})

	att := writeAttachment(t, []byte("jpeg-bytes"))
	res := d.Handle(context.Background(), Request{Message: "read this file", Attachment: att})
	if res.Route != route.RouteDocument {
		t.Fatalf("route = %q, want document", res.Route)
	}
	if !strings.Contains(res.Response, "Document Analysis Complete (DocTags Parsing)") {
		t.Fatalf("response missing method header: %q", res.Response)
	}
	if !strings.Contains(res.Response, "# Quarterly Report") {
		t.Fatalf("response missing rendered title: %q", res.Response)
	}
	if strings.Contains(res.Response, "<title>") {
		t.Fatalf("raw markup leaked into response: %q", res.Response)
	}

	last, ok := d.Tags().Last()
	if !ok {
		t.Fatal("tag ring is empty after a tag extraction")
	}
	if last.Stream != stream {
		t.Fatalf("ring recorded %q, want the raw stream", last.Stream)
	}
}

func TestDispatcher_DocumentKeepsLongestLadderResult(t *testing.T) {
	short := "<doctag><text>tiny</text></doctag>"
	long := "<doctag><title>Big Page</title><text>" + strings.Repeat("content ", 20) + "</text></doctag>"
	var visionCalls int
	llm := &fakeLLM{fn: func(req ollama.GenerateRequest) (string, error) {
		if req.Model != "vision-test" {
			return "", errors.New("unexpected router call")
		}
		visionCalls++
		switch visionCalls {
		case 1:
			return short, nil
		case 2:
			return "", errors.New("transient failure")
		default:
			return long, nil
		}
	}}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, &memHistory{})

	att := writeAttachment(t, []byte("jpeg-bytes"))
	res := d.Handle(context.Background(), Request{Message: "extract text", Attachment: att})
	if visionCalls != 3 {
		t.Fatalf("vision calls = %d, want the full prompt ladder", visionCalls)
	}
	if !strings.Contains(res.Response, "# Big Page") {
		t.Fatalf("response should come from the longest extraction: %q", res.Response)
	}
}

func TestDispatcher_DocumentRescuePath(t *testing.T) {
	rescueText := strings.Repeat("The page reads: meeting notes for March. ", 4)
	llm := &fakeLLM{fn: func(req ollama.GenerateRequest) (string, error) {
		if req.Model == "vision-test" {
			return "ab", nil
		}
		if len(req.Images) != 1 {
			return "", errors.New("rescue call must carry the image")
		}
		if req.Temperature != rescueTemperature {
			return "", errors.New("rescue call must run near-deterministic")
		}
		return rescueText, nil
	}}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, &memHistory{})

	att := writeAttachment(t, []byte("jpeg-bytes"))
	res := d.Handle(context.Background(), Request{Message: "read this", Attachment: att})
	if res.Route != route.RouteDocument {
		t.Fatalf("route = %q, want document", res.Route)
	}
	if !strings.Contains(res.Response, "Router Model Fallback") {
		t.Fatalf("response missing rescue method: %q", res.Response)
	}
	if !strings.Contains(res.Response, "meeting notes for March") {
		t.Fatalf("rescue text missing from response: %q", res.Response)
	}
}

func TestDispatcher_DocumentNativeTextFile(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model should stay idle for text files")}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, &memHistory{})

	body := "Minutes of the planning meeting.\n\nAttendees agreed to ship the beta by the end of the quarter.\n"
	path := filepath.Join(t.TempDir(), "minutes.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	res := d.Handle(context.Background(), Request{
		Message:    "read this",
		Attachment: &Attachment{Path: path, Filename: "minutes.txt", ContentType: "text/plain"},
	})
	if res.Route != route.RouteDocument {
		t.Fatalf("route = %q, want document", res.Route)
	}
	if !strings.Contains(res.Response, "Native Text Extraction") {
		t.Fatalf("response missing native method: %q", res.Response)
	}
	if !strings.Contains(res.Response, "ship the beta") {
		t.Fatalf("parsed content missing: %q", res.Response)
	}
	if len(llm.calls) != 0 {
		t.Fatalf("llm called %d times for a plain text file, want 0", len(llm.calls))
	}
}

func TestDispatcher_DocumentUnreadableAttachment(t *testing.T) {
	llm := &fakeLLM{response: "unused"}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, &memHistory{})

	res := d.Handle(context.Background(), Request{
		Message:    "read this",
		Attachment: &Attachment{Path: filepath.Join(t.TempDir(), "missing.jpg"), Filename: "missing.jpg"},
	})
	if res.Route != route.RouteError {
		t.Fatalf("route = %q, want error", res.Route)
	}
	if !strings.Contains(res.Response, "could not read") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestDispatcher_CapabilitiesDegradesToOverview(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model offline")}
	history := &memHistory{}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, history)

	res := d.Handle(context.Background(), Request{Message: "what can you do", SessionID: "s1"})
	if res.Route != route.RouteCapabilities {
		t.Fatalf("route = %q, want capabilities", res.Route)
	}
	if res.Response != capabilitiesOverview {
		t.Fatalf("degraded capabilities should serve the overview, got %q", res.Response)
	}
	if len(history.exchanges) != 1 {
		t.Fatalf("exchanges stored = %d, want 1", len(history.exchanges))
	}
}

func TestDispatcher_ChatPromptCarriesHistory(t *testing.T) {
	history := &memHistory{exchanges: []store.Exchange{
		{SessionID: "s1", User: "my name is Ada", Assistant: "Nice to meet you, Ada."},
	}}
	var prompt string
	llm := &fakeLLM{fn: func(req ollama.GenerateRequest) (string, error) {
		prompt = req.Prompt
		return "Your name is Ada.", nil
	}}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, history)

	d.Handle(context.Background(), Request{Message: "what's my name?", SessionID: "s1"})
	for _, want := range []string{"Previous conversation:", "my name is Ada", "Current message: what's my name?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

// Only conversational routes feed the session memory. Search and
// document output would drown a small model's context window.
func TestDispatcher_MemoryOnlyForConversation(t *testing.T) {
	history := &memHistory{}
	llm := &fakeLLM{response: "fine"}
	primary := &fakeSearcher{name: "SearXNG", results: []search.Result{{Title: "T", URL: "https://t.example"}}}
	d := newTestDispatcher(llm, primary, &fakeSearcher{name: "f"}, history)

	d.Handle(context.Background(), Request{Message: "search for news", SessionID: "s1"})
	if len(history.exchanges) != 0 {
		t.Fatalf("search stored %d exchanges, want 0", len(history.exchanges))
	}

	d.Handle(context.Background(), Request{Message: "hello", SessionID: "s1"})
	if len(history.exchanges) != 1 {
		t.Fatalf("chat stored %d exchanges, want 1", len(history.exchanges))
	}
	if history.exchanges[0].Route != route.RouteChat.String() {
		t.Fatalf("stored route = %q, want chat", history.exchanges[0].Route)
	}
}

func TestDispatcher_RouteCounts(t *testing.T) {
	llm := &fakeLLM{response: "ok"}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, &memHistory{})

	d.Handle(context.Background(), Request{Message: "hello"})
	d.Handle(context.Background(), Request{Message: "hi again"})
	d.Handle(context.Background(), Request{Message: "what can you do"})

	counts := d.RouteCounts()
	if counts["chat"] != 2 {
		t.Fatalf("chat count = %d, want 2", counts["chat"])
	}
	if counts["capabilities"] != 1 {
		t.Fatalf("capabilities count = %d, want 1", counts["capabilities"])
	}
}

func TestDispatcher_NilHistoryTolerated(t *testing.T) {
	llm := &fakeLLM{response: "hi"}
	d := newTestDispatcher(llm, &fakeSearcher{name: "p"}, &fakeSearcher{name: "f"}, nil)

	res := d.Handle(context.Background(), Request{Message: "hello", SessionID: "s1"})
	if res.Response != "hi" {
		t.Fatalf("response = %q", res.Response)
	}
}
