package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/agentgate/internal/agent"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	FileID    string `json:"file_id"`
}

type chatResponse struct {
	Response       string  `json:"response"`
	AgentUsed      string  `json:"agent_used"`
	ProcessingTime float64 `json:"processing_time"`
	SessionID      string  `json:"session_id"`
	Timestamp      string  `json:"timestamp"`
}

// handleChat runs one conversational turn through the dispatcher. A
// missing session_id starts a fresh session; an unknown file_id is
// ignored rather than rejected, so a stale upload reference degrades
// to plain chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	areq := agent.Request{Message: req.Message, SessionID: sessionID}
	if req.FileID != "" {
		if up, ok := s.uploads.Get(req.FileID); ok {
			areq.Attachment = &agent.Attachment{
				Path:        up.Path,
				Filename:    up.Filename,
				ContentType: up.ContentType,
			}
		} else {
			s.log.Warn("chat references unknown file_id", "file_id", req.FileID)
		}
	}

	start := time.Now()
	res := s.dispatcher.Handle(r.Context(), areq)
	elapsed := time.Since(start).Seconds()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		Response:       res.Response,
		AgentUsed:      res.Route.String(),
		ProcessingTime: math.Round(elapsed*100) / 100,
		SessionID:      sessionID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}
