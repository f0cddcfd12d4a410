package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server needs from the environment. It is the
// single composition point: capabilities are constructed from it once at
// startup and passed down explicitly.
type Config struct {
	Port string

	// Auth service (GoTrue-style) used to verify bearer tokens.
	AuthURL     string
	AuthAnonKey string

	// SQLite database path for tasks, progress rows and results.
	DBPath string

	// LLM provider selection, resolved by llm.NewFromEnv.
	LLMProvider string

	// Search settings.
	SearchMaxResults int
	EnrichSnippets   bool
	FetchMaxBytes    int
	FetchTimeout     time.Duration
}

// FromEnv loads .env if present and builds a Config with defaults applied.
// It fails only on settings the server cannot run without.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		AuthURL:          os.Getenv("AUTH_URL"),
		AuthAnonKey:      os.Getenv("AUTH_ANON_KEY"),
		DBPath:           getEnv("DB_PATH", "research.db"),
		LLMProvider:      os.Getenv("LLM_PROVIDER"),
		SearchMaxResults: getEnvInt("SEARCH_MAX_RESULTS", 10),
		EnrichSnippets:   os.Getenv("SEARCH_ENRICH_SNIPPETS") == "1",
		FetchMaxBytes:    getEnvInt("FETCH_MAX_BYTES", 2<<20),
		FetchTimeout:     time.Duration(getEnvInt("FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
	}

	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("missing AUTH_URL")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
