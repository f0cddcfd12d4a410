package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/research-orchestrator/internal/auth"
	"github.com/example/research-orchestrator/internal/content"
	"github.com/example/research-orchestrator/internal/llm"
	"github.com/example/research-orchestrator/internal/models"
	"github.com/example/research-orchestrator/internal/search"
	"github.com/example/research-orchestrator/internal/store"
	"github.com/example/research-orchestrator/internal/workflow"
)

// Server wires the external capabilities into the HTTP surface. It is the
// composition root: every workflow execution gets its own controller built
// from these capabilities, bound to the authenticated caller.
type Server struct {
	Auth     auth.Verifier
	Store    store.Store
	Searcher search.Searcher
	LLM      llm.Client
	Logger   *slog.Logger
}

func NewServer(verifier auth.Verifier, st store.Store, searcher search.Searcher, client llm.Client, logger *slog.Logger) *Server {
	return &Server{Auth: verifier, Store: st, Searcher: searcher, LLM: client, Logger: logger}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/research-agent", s.handleStart)
	mux.HandleFunc("POST /api/research-queries", s.handleCreateTask)
	mux.HandleFunc("GET /api/research-agent/{id}/progress", s.handleProgress)
	mux.HandleFunc("GET /api/research-agent/{id}/result", s.handleResult)
}

// handleStart triggers the research workflow for an existing task and returns
// immediately. Authentication and basic validation happen synchronously; the
// pipeline itself runs detached, so the response never reflects its outcome.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ident, token, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req models.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.QueryID) == "" {
		http.Error(w, "missing queryId", http.StatusBadRequest)
		return
	}

	s.Logger.Info("starting research workflow", "query_id", req.QueryID, "user_id", ident.ID)

	pipeline := content.NewPipeline(s.LLM, s.Logger)
	wf := workflow.New(s.Auth, s.Store, s.Searcher, pipeline, token, ident.ID, s.Logger)

	// Fire and forget: the run is detached from this request. Outcome is
	// observable only through progress rows and the task status.
	go func() {
		if err := wf.Run(context.Background(), req.QueryID); err != nil {
			s.Logger.Error("detached workflow run failed", "query_id", req.QueryID, "error", err)
		}
	}()

	respondJSON(w, models.StartResponse{
		Message: "research workflow started successfully",
		QueryID: req.QueryID,
		Status:  "success",
	})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ident, _, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		Topic        string   `json:"topic"`
		Depth        string   `json:"depth"`
		Perspectives []string `json:"perspectives"`
		Format       string   `json:"format"`
		Sources      []string `json:"sources"`
		Timeframe    string   `json:"timeframe"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		http.Error(w, "missing topic", http.StatusBadRequest)
		return
	}
	depth := models.Depth(req.Depth)
	if depth == "" {
		depth = models.DepthBasic
	}
	format := models.Format(req.Format)
	if format == "" {
		format = models.FormatMarkdown
	}

	task := &models.Task{
		ID:           uuid.NewString(),
		UserID:       ident.ID,
		Topic:        req.Topic,
		Depth:        depth,
		Perspectives: req.Perspectives,
		Format:       format,
		Sources:      req.Sources,
		Timeframe:    req.Timeframe,
		Status:       models.StatusWaiting,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.Store.CreateTask(r.Context(), task); err != nil {
		s.Logger.Error("failed to create task", "error", err)
		http.Error(w, "failed to create task", http.StatusInternalServerError)
		return
	}
	respondJSON(w, task)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	_, id, ok := s.authorizeTask(w, r)
	if !ok {
		return
	}
	rows, err := s.Store.Progress(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to read progress", http.StatusInternalServerError)
		return
	}
	respondJSON(w, rows)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	_, id, ok := s.authorizeTask(w, r)
	if !ok {
		return
	}
	report, err := s.Store.GetResult(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to read result", http.StatusInternalServerError)
		return
	}
	respondJSON(w, report)
}

// authenticate resolves the bearer token or writes a 401.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Identity, string, bool) {
	token := bearerToken(r)
	ident, err := s.Auth.Verify(r.Context(), token)
	if err != nil {
		s.Logger.Warn("authentication failed", "error", err)
		http.Error(w, "invalid authentication credentials", http.StatusUnauthorized)
		return nil, "", false
	}
	return ident, token, true
}

// authorizeTask authenticates the caller and checks ownership of the task in
// the URL path.
func (s *Server) authorizeTask(w http.ResponseWriter, r *http.Request) (*auth.Identity, string, bool) {
	ident, _, ok := s.authenticate(w, r)
	if !ok {
		return nil, "", false
	}
	id := r.PathValue("id")
	task, err := s.Store.GetTask(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil, "", false
	}
	if err != nil {
		http.Error(w, "failed to read task", http.StatusInternalServerError)
		return nil, "", false
	}
	if task.UserID != ident.ID {
		http.NotFound(w, r) // do not reveal other users' tasks
		return nil, "", false
	}
	return ident, id, true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
