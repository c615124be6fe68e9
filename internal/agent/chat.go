package agent

import (
	"context"
	"strings"

	"github.com/dgallion1/agentgate/internal/ollama"
	"github.com/dgallion1/agentgate/internal/route"
)

const degradedChatMessage = "Sorry, I ran into a problem answering that. Please try again in a moment."

// chat answers in plain conversation, folding recent session turns
// into the prompt.
func (d *Dispatcher) chat(ctx context.Context, req Request) Result {
	prompt := chatPrompt(d.recent(ctx, req.SessionID), req.Message)
	reply, err := d.llm.Generate(ctx, ollama.GenerateRequest{
		Model:       d.cfg.RouterModel,
		Prompt:      prompt,
		Temperature: chatTemperature,
	})
	if err != nil {
		d.log.Error("chat inference failed", "error", err, "session", req.SessionID)
		return Result{Response: degradedChatMessage, Route: route.RouteChat}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Result{Response: degradedChatMessage, Route: route.RouteChat}
	}

	res := Result{Response: reply, Route: route.RouteChat}
	d.remember(ctx, req, res)
	return res
}

// capabilities answers questions about what the system can do. The
// model gets the overview as grounding; if it is down, the overview
// itself is the answer.
func (d *Dispatcher) capabilities(ctx context.Context, req Request) Result {
	prompt := capabilitiesPrompt(d.recent(ctx, req.SessionID), req.Message)
	reply, err := d.llm.Generate(ctx, ollama.GenerateRequest{
		Model:       d.cfg.RouterModel,
		Prompt:      prompt,
		Temperature: chatTemperature,
	})
	if err != nil {
		d.log.Warn("capabilities inference failed, serving overview", "error", err)
		reply = capabilitiesOverview
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = capabilitiesOverview
	}

	res := Result{Response: reply, Route: route.RouteCapabilities}
	d.remember(ctx, req, res)
	return res
}
