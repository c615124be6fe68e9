package api

import (
	"encoding/json"
	"net/http"
)

// handleStats reports request counters, session and upload state, and
// the inference latency window.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	routes := s.dispatcher.RouteCounts()
	var handled int64
	for _, n := range routes {
		handled += n
	}

	var stored, sessions int64
	if s.history != nil {
		var err error
		if stored, err = s.history.TotalExchanges(ctx); err != nil {
			s.log.Warn("failed to count exchanges", "error", err)
		}
		if sessions, err = s.history.ActiveSessions(ctx); err != nil {
			s.log.Warn("failed to count sessions", "error", err)
		}
	}

	payload := map[string]any{
		"total_messages":   handled,
		"stored_exchanges": stored,
		"total_uploads":    s.uploads.Count(),
		"active_sessions":  sessions,
		"routes":           routes,
		"models": map[string]string{
			"router": s.cfg.RouterModel,
			"vision": s.cfg.VisionModel,
		},
	}
	if s.llm != nil {
		payload["llm"] = s.llm.Stats().Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// handleDebugDocTags exposes the ring of recent raw extraction streams
// so operators can see exactly what the vision model emitted.
func (s *Server) handleDebugDocTags(w http.ResponseWriter, r *http.Request) {
	ring := s.dispatcher.Tags()
	entries := ring.Snapshot()

	payload := map[string]any{
		"count":   len(entries),
		"streams": entries,
	}
	if last, ok := ring.Last(); ok {
		payload["last"] = last
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
