package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/agentgate/internal/route"
)

type Config struct {
	Port string

	// Inference backend
	OllamaURL    string
	RouterModel  string
	VisionModel  string
	InferTimeout time.Duration

	// Web search
	SearxURL      string
	BraveAPIKey   string
	SearchTimeout time.Duration

	// Uploads
	UploadDir      string
	MaxUploadBytes int64
	UploadTTL      time.Duration

	// Session persistence
	DBPath string

	// Routing keywords override, optional
	KeywordsFile string
}

// Load reads configuration from the environment. A .env file in the
// working directory fills in variables the environment does not
// already set.
func Load() Config {
	loadDotEnv()

	cfg := Config{
		Port: envOr("PORT", "9050"),

		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		RouterModel:  envOr("ROUTER_MODEL", "qwen3:0.6b"),
		VisionModel:  envOr("VISION_MODEL", "gabegoodhart/granite-docling:258M"),
		InferTimeout: envDuration("INFER_TIMEOUT", 120*time.Second),

		SearxURL:      envOr("SEARXNG_URL", "http://localhost:8888"),
		BraveAPIKey:   os.Getenv("BRAVE_API_KEY"),
		SearchTimeout: envDuration("SEARCH_TIMEOUT", 15*time.Second),

		UploadDir:      envOr("UPLOAD_DIR", filepath.Join(os.TempDir(), "agentgate_uploads")),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		UploadTTL:      envDuration("UPLOAD_TTL", 1*time.Hour),

		DBPath: envOr("DB_PATH", "agentgate.db"),

		KeywordsFile: os.Getenv("KEYWORDS_FILE"),
	}

	if cfg.InferTimeout <= 0 {
		cfg.InferTimeout = 120 * time.Second
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 15 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = 1 * time.Hour
	}

	return cfg
}

// Keywords returns the routing keyword sets: the built-in defaults, or
// the YAML file named by KEYWORDS_FILE when one is configured.
func (c Config) Keywords() (route.Keywords, error) {
	if c.KeywordsFile == "" {
		return route.DefaultKeywords(), nil
	}
	data, err := os.ReadFile(c.KeywordsFile)
	if err != nil {
		return route.Keywords{}, fmt.Errorf("read keywords file: %w", err)
	}
	var kw route.Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return route.Keywords{}, fmt.Errorf("parse keywords file %s: %w", c.KeywordsFile, err)
	}
	return kw, nil
}

// loadDotEnv mirrors dotenv conventions: values from .env never
// override variables already present in the environment.
func loadDotEnv() {
	values, err := godotenv.Read(".env")
	if err != nil {
		return
	}
	for k, v := range values {
		if _, exists := os.LookupEnv(k); !exists {
			os.Setenv(k, v)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
