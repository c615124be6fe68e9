package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/agentgate/internal/agent"
	"github.com/dgallion1/agentgate/internal/api"
	"github.com/dgallion1/agentgate/internal/config"
	"github.com/dgallion1/agentgate/internal/ollama"
	"github.com/dgallion1/agentgate/internal/route"
	"github.com/dgallion1/agentgate/internal/search"
	"github.com/dgallion1/agentgate/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()

	kw, err := cfg.Keywords()
	if err != nil {
		log.Error("invalid keyword configuration", "file", cfg.KeywordsFile, "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Error("cannot create upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Error("cannot open session store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Initialize clients.
	llm := ollama.NewClient(cfg.OllamaURL, cfg.InferTimeout)
	searx := search.NewSearxClient(cfg.SearxURL, cfg.SearchTimeout)
	brave := search.NewBraveClient(cfg.BraveAPIKey, cfg.SearchTimeout)

	uploads := store.NewUploads(cfg.UploadTTL)
	dispatcher := agent.NewDispatcher(agent.Config{
		RouterModel: cfg.RouterModel,
		VisionModel: cfg.VisionModel,
	}, route.NewClassifier(kw), llm, searx, brave, history, log)

	// Sweep expired uploads in the background.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, path := range uploads.Cleanup() {
					if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
						log.Warn("cannot remove expired upload", "path", path, "error", err)
					}
				}
			}
		}
	}()

	// Initialize HTTP server.
	srv := api.NewServer(dispatcher, uploads, history, llm, log, cfg)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv,
		// Document extraction can chain several model calls, so the write
		// timeout has to cover more than one inference round trip.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * cfg.InferTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		llm.Close()
		history.Close()
		cancel()
	}()

	log.Info("starting agentgate",
		"port", cfg.Port,
		"ollama", cfg.OllamaURL,
		"router_model", cfg.RouterModel,
		"vision_model", cfg.VisionModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
