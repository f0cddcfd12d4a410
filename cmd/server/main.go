package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/example/research-orchestrator/internal/api"
	"github.com/example/research-orchestrator/internal/auth"
	"github.com/example/research-orchestrator/internal/config"
	"github.com/example/research-orchestrator/internal/llm"
	"github.com/example/research-orchestrator/internal/search"
	"github.com/example/research-orchestrator/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	searcher := search.NewDuckDuckGo(logger)
	searcher.MaxResults = cfg.SearchMaxResults
	if cfg.EnrichSnippets {
		searcher.Enricher = search.NewEnricher(cfg.FetchMaxBytes, cfg.FetchTimeout, logger)
	}

	server := api.NewServer(
		auth.NewHTTPVerifier(cfg.AuthURL, cfg.AuthAnonKey),
		st,
		searcher,
		llm.NewFromEnv(),
		logger,
	)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	addr := ":" + cfg.Port
	logger.Info("server listening", "addr", addr)
	if err := http.ListenAndServe(addr, cors(mux)); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// simple CORS middleware for local dev
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
