package workflow

import (
	"context"
	"log/slog"

	"github.com/example/research-orchestrator/internal/models"
	"github.com/example/research-orchestrator/internal/store"
)

// The five externally visible agent names. Six stages map onto five rows: the
// publish stage is fire-and-commit and reports no row of its own.
const (
	AgentWebResearch = "Web Research Agent"
	AgentEditor      = "Editor Agent"
	AgentResearcher  = "Academic Research Agent"
	AgentFactChecker = "Fact Checker Agent"
	AgentSynthesis   = "Synthesis Agent"
)

var initialRows = []struct {
	name    string
	message string
}{
	{AgentWebResearch, "Preparing to start web research"},
	{AgentEditor, "Waiting to create research outline"},
	{AgentResearcher, "Waiting to conduct in-depth research"},
	{AgentFactChecker, "Waiting to review and fact-check content"},
	{AgentSynthesis, "Waiting to compile final report"},
}

// ProgressTracker persists per-stage status for external observers. Progress
// reporting is best-effort and never load-bearing: persistence failures are
// logged and swallowed so they cannot abort the pipeline.
type ProgressTracker struct {
	store  store.Store
	logger *slog.Logger
}

func NewProgressTracker(st store.Store, logger *slog.Logger) *ProgressTracker {
	return &ProgressTracker{store: st, logger: logger}
}

// Initialize creates one waiting/0% row per agent. Not idempotent: calling it
// twice for the same task creates duplicate rows, so callers invoke it exactly
// once per task execution.
func (t *ProgressTracker) Initialize(ctx context.Context, taskID string) {
	rows := make([]models.StageProgress, 0, len(initialRows))
	for _, r := range initialRows {
		rows = append(rows, models.StageProgress{
			TaskID:      taskID,
			AgentName:   r.name,
			Status:      models.StageWaiting,
			Progress:    0,
			CurrentTask: r.message,
		})
	}
	if err := t.store.InitProgress(ctx, rows); err != nil {
		t.logger.Error("failed to initialize progress rows", "task_id", taskID, "error", err)
	}
}

// Update overwrites the row for (taskID, agentName).
func (t *ProgressTracker) Update(ctx context.Context, taskID, agentName string, status models.StageStatus, progress int, message string) {
	if err := t.store.SetProgress(ctx, taskID, agentName, status, progress, message); err != nil {
		t.logger.Error("failed to update progress row",
			"task_id", taskID, "agent", agentName, "status", status, "error", err)
	}
}

// ReadAll returns the current rows for external observers. The core state
// machine never reads them back.
func (t *ProgressTracker) ReadAll(ctx context.Context, taskID string) ([]models.StageProgress, error) {
	return t.store.Progress(ctx, taskID)
}
