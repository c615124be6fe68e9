package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/agentgate/internal/agent"
	"github.com/dgallion1/agentgate/internal/config"
	"github.com/dgallion1/agentgate/internal/ollama"
	"github.com/dgallion1/agentgate/internal/store"
)

// Server is the HTTP front of the multi-agent backend.
type Server struct {
	router     chi.Router
	dispatcher *agent.Dispatcher
	uploads    *store.Uploads
	history    *store.Store
	llm        *ollama.Client
	log        *slog.Logger
	cfg        config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(d *agent.Dispatcher, uploads *store.Uploads, history *store.Store, llm *ollama.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		dispatcher: d,
		uploads:    uploads,
		history:    history,
		llm:        llm,
		log:        log,
		cfg:        cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(CORS)
	r.Use(RequestLogger(s.log))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Post("/chat", s.handleChat)
	r.Post("/upload", s.handleUpload)
	r.Get("/stats", s.handleStats)
	r.Get("/debug/doctags", s.handleDebugDocTags)

	s.router = r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Multi-Agent System Backend",
		"status":  "running",
		"agents":  []string{"router", "document", "web_search"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"service":   "agentgate",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
