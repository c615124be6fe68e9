package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "OLLAMA_URL", "ROUTER_MODEL", "INFER_TIMEOUT", "SEARCH_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "9050" {
		t.Errorf("Port = %q, want 9050", cfg.Port)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("OllamaURL = %q", cfg.OllamaURL)
	}
	if cfg.RouterModel != "qwen3:0.6b" {
		t.Errorf("RouterModel = %q", cfg.RouterModel)
	}
	if cfg.InferTimeout != 120*time.Second {
		t.Errorf("InferTimeout = %v, want 120s", cfg.InferTimeout)
	}
	if cfg.SearchTimeout != 15*time.Second {
		t.Errorf("SearchTimeout = %v, want 15s", cfg.SearchTimeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("INFER_TIMEOUT", "30s")
	t.Setenv("ROUTER_MODEL", "llama3.2:1b")

	cfg := Load()
	if cfg.Port != "7777" {
		t.Errorf("Port = %q, want 7777", cfg.Port)
	}
	if cfg.InferTimeout != 30*time.Second {
		t.Errorf("InferTimeout = %v, want 30s", cfg.InferTimeout)
	}
	if cfg.RouterModel != "llama3.2:1b" {
		t.Errorf("RouterModel = %q", cfg.RouterModel)
	}
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("SEARCH_TIMEOUT", "soon")
	cfg := Load()
	if cfg.SearchTimeout != 15*time.Second {
		t.Errorf("SearchTimeout = %v, want the 15s default", cfg.SearchTimeout)
	}
}

func TestKeywords_DefaultsWhenUnset(t *testing.T) {
	kw, err := Config{}.Keywords()
	if err != nil {
		t.Fatalf("Keywords() error: %v", err)
	}
	if len(kw.Search) == 0 || len(kw.Document) == 0 || len(kw.Capabilities) == 0 {
		t.Fatalf("default keywords incomplete: %+v", kw)
	}
}

func TestKeywords_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	yaml := "search:\n  - recherche\ndocument:\n  - dokument\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	kw, err := Config{KeywordsFile: path}.Keywords()
	if err != nil {
		t.Fatalf("Keywords() error: %v", err)
	}
	if len(kw.Search) != 1 || kw.Search[0] != "recherche" {
		t.Errorf("Search = %v", kw.Search)
	}
	if len(kw.Document) != 1 || kw.Document[0] != "dokument" {
		t.Errorf("Document = %v", kw.Document)
	}
	if len(kw.Capabilities) != 0 {
		t.Errorf("Capabilities should be empty when the file omits them, got %v", kw.Capabilities)
	}
}

func TestKeywords_MissingFile(t *testing.T) {
	_, err := Config{KeywordsFile: filepath.Join(t.TempDir(), "nope.yaml")}.Keywords()
	if err == nil {
		t.Fatal("expected an error for a missing keywords file")
	}
}
