// Package workflow contains the orchestrator core: the lifecycle controller,
// the fixed stage sequence, and the per-stage progress protocol. One Workflow
// instance is bound to one caller and drives one detached execution;
// instances are never shared between tasks.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/research-orchestrator/internal/auth"
	"github.com/example/research-orchestrator/internal/content"
	"github.com/example/research-orchestrator/internal/models"
	"github.com/example/research-orchestrator/internal/search"
	"github.com/example/research-orchestrator/internal/store"
)

var (
	// ErrUserMismatch is returned when the verified identity does not match
	// the user the workflow was constructed for.
	ErrUserMismatch = errors.New("workflow: user id mismatch")
	// ErrAccessDenied is returned when the task exists but belongs to a
	// different user.
	ErrAccessDenied = errors.New("workflow: access denied")
)

// Workflow executes the research pipeline for a single task on behalf of an
// authenticated caller. Construct one per trigger.
type Workflow struct {
	auth     auth.Verifier
	store    store.Store
	searcher search.Searcher
	pipeline *content.Pipeline
	tracker  *ProgressTracker
	logger   *slog.Logger

	token  string
	userID string
}

func New(verifier auth.Verifier, st store.Store, searcher search.Searcher, pipeline *content.Pipeline, token, userID string, logger *slog.Logger) *Workflow {
	return &Workflow{
		auth:     verifier,
		store:    st,
		searcher: searcher,
		pipeline: pipeline,
		tracker:  NewProgressTracker(st, logger),
		logger:   logger,
		token:    token,
		userID:   userID,
	}
}

// Tracker exposes the progress tracker for observer endpoints.
func (w *Workflow) Tracker() *ProgressTracker { return w.tracker }

// Run executes the full pipeline for taskID. It is designed to run detached:
// the trigger handler spawns it and never inspects the return value, so the
// outcome is reported through structured logs, progress rows and the final
// task status. On any failure the task status is reset to waiting (one
// best-effort attempt) so the caller can re-trigger, and the error is
// returned.
func (w *Workflow) Run(ctx context.Context, taskID string) error {
	log := w.logger.With("task_id", taskID, "user_id", w.userID)
	log.Info("starting workflow execution")

	if err := w.execute(ctx, taskID, log); err != nil {
		log.Error("workflow failed", "error", err)
		if rerr := w.store.SetTaskStatus(ctx, taskID, models.StatusWaiting); rerr != nil {
			log.Error("failed to reset task status to waiting", "error", rerr)
		}
		return err
	}

	log.Info("workflow completed successfully")
	return nil
}

func (w *Workflow) execute(ctx context.Context, taskID string, log *slog.Logger) error {
	ident, err := w.auth.Verify(ctx, w.token)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	if ident.ID != w.userID {
		return ErrUserMismatch
	}

	task, err := w.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("fetch task %s: %w", taskID, err)
	}
	if task.UserID != w.userID {
		return ErrAccessDenied
	}

	st := newState(task)

	w.tracker.Initialize(ctx, taskID)
	if err := w.store.SetTaskStatus(ctx, taskID, models.StatusInitializing); err != nil {
		log.Error("failed to set task status to initializing", "error", err)
	}

	stages := []struct {
		name string
		run  func(context.Context, *State) error
	}{
		{"search", w.searchStage},
		{"outline", w.outlineStage},
		{"drafting", w.draftingStage},
		{"review", w.reviewStage},
		{"compile", w.compileStage},
		{"publish", w.publishStage},
	}
	for _, stage := range stages {
		log.Info("running stage", "stage", stage.name)
		if err := stage.run(ctx, st); err != nil {
			return fmt.Errorf("stage %s: %w", stage.name, err)
		}
	}

	if err := w.store.SetTaskStatus(ctx, taskID, models.StatusCompleted); err != nil {
		return fmt.Errorf("set task status to completed: %w", err)
	}
	return nil
}

// searchStage queries the search capability for the task topic. The searcher
// degrades to a fallback result rather than failing, so this stage only ever
// completes.
func (w *Workflow) searchStage(ctx context.Context, st *State) error {
	id := st.Task.ID
	w.tracker.Update(ctx, id, AgentWebResearch, models.StageActive, 25, "Searching web sources...")

	st.SearchResults = w.searcher.Search(ctx, st.Task.Topic)
	st.CurrentStep = stepOutlinePlanning

	w.tracker.Update(ctx, id, AgentWebResearch, models.StageCompleted, 100, "Web research completed")
	return nil
}

func (w *Workflow) outlineStage(ctx context.Context, st *State) error {
	id := st.Task.ID
	w.tracker.Update(ctx, id, AgentEditor, models.StageActive, 50, "Creating research outline...")

	outline, err := w.pipeline.CreateOutline(ctx, st.Task, st.SearchResults)
	if err != nil {
		w.tracker.Update(ctx, id, AgentEditor, models.StageError, 0, "Outline creation failed")
		return err
	}
	st.Outline = outline
	st.CurrentStep = stepParallelResearch

	w.tracker.Update(ctx, id, AgentEditor, models.StageCompleted, 100, "Outline created")
	return nil
}

// draftingStage researches each outline section in order. Sections are
// processed sequentially even though the step label reads parallel_research;
// the label is part of the external contract.
func (w *Workflow) draftingStage(ctx context.Context, st *State) error {
	id := st.Task.ID
	w.tracker.Update(ctx, id, AgentResearcher, models.StageActive, 60, "Researching sections...")

	drafts, err := w.pipeline.ResearchSections(ctx, st.Outline.Sections, st.Task, st.SearchResults)
	if err != nil {
		w.tracker.Update(ctx, id, AgentResearcher, models.StageError, 0, "Research failed")
		return err
	}
	st.SectionDrafts = drafts
	st.CurrentStep = stepReviewRevision

	w.tracker.Update(ctx, id, AgentResearcher, models.StageCompleted, 100, "In-depth research completed")
	return nil
}

func (w *Workflow) reviewStage(ctx context.Context, st *State) error {
	id := st.Task.ID
	w.tracker.Update(ctx, id, AgentFactChecker, models.StageActive, 75, "Fact-checking and reviewing content...")

	reviewed, err := w.pipeline.ReviewSections(ctx, st.SectionDrafts)
	if err != nil {
		w.tracker.Update(ctx, id, AgentFactChecker, models.StageError, 0, "Review failed")
		return err
	}
	st.ReviewedSections = reviewed
	st.CurrentStep = stepCompilation

	w.tracker.Update(ctx, id, AgentFactChecker, models.StageCompleted, 100, "Review and fact-checking completed")
	return nil
}

func (w *Workflow) compileStage(ctx context.Context, st *State) error {
	id := st.Task.ID
	w.tracker.Update(ctx, id, AgentSynthesis, models.StageActive, 90, "Compiling final report...")

	report, err := w.pipeline.CompileReport(ctx, st.Task, st.ReviewedSections, st.SearchResults)
	if err != nil {
		w.tracker.Update(ctx, id, AgentSynthesis, models.StageError, 0, "Report compilation failed")
		return err
	}
	st.FinalReport = report
	st.CurrentStep = stepPublication

	w.tracker.Update(ctx, id, AgentSynthesis, models.StageCompleted, 100, "Report compilation completed")
	return nil
}

// publishStage persists the final report. It owns no progress row.
func (w *Workflow) publishStage(ctx context.Context, st *State) error {
	if err := w.store.SaveResult(ctx, st.Task.ID, st.FinalReport); err != nil {
		return err
	}
	st.CurrentStep = stepCompleted
	return nil
}
