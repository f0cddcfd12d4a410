package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/research-orchestrator/internal/auth"
	"github.com/example/research-orchestrator/internal/content"
	"github.com/example/research-orchestrator/internal/models"
	"github.com/example/research-orchestrator/internal/store"
)

type stubSearcher struct {
	results []models.SearchResult
}

func (s stubSearcher) Search(ctx context.Context, topic string) []models.SearchResult {
	return s.results
}

// scriptedLLM answers each pipeline prompt with a plausible reply; prompts
// containing failOn fail instead.
type scriptedLLM struct {
	failOn string
}

func (f *scriptedLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return "", errors.New("generation failed")
	}
	switch {
	case strings.Contains(prompt, "research outline"):
		return "1. Historical Foundations of the Field\n2. Current Technology Landscape\n3. Policy and Market Dynamics\n4. Future Outlook and Scenarios", nil
	case strings.Contains(prompt, "Write comprehensive content"):
		return "Detailed analysis citing https://x as primary evidence of growth.", nil
	case strings.Contains(prompt, "Review and enhance"):
		return "Enhanced analysis with concrete figures, still citing https://x throughout.", nil
	case strings.Contains(prompt, "executive summary"):
		return "Deployment is accelerating across markets. Storage economics remain the main constraint.", nil
	case strings.Contains(prompt, "JSON array"):
		return `[{"title":"Industry Perspective","viewpoint":"Costs keep falling.","evidence":["Module prices dropped"]},{"title":"Policy Perspective","viewpoint":"Incentives are shifting.","evidence":["New frameworks enacted"]},{"title":"Academic Perspective","viewpoint":"Research output is growing.","evidence":["Publication counts rising"]}]`, nil
	default:
		return "generic reply", nil
	}
}

// failingSaveStore makes publication fail while everything else succeeds.
type failingSaveStore struct {
	store.Store
}

func (f *failingSaveStore) SaveResult(ctx context.Context, taskID string, report *models.Report) error {
	return errors.New("save rejected")
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func setup(t *testing.T, st store.Store, failOn string) (*Workflow, string) {
	t.Helper()
	task := &models.Task{
		ID:     "task-1",
		UserID: "user-1",
		Topic:  "solar energy",
		Depth:  models.DepthBasic,
		Format: models.FormatMarkdown,
		Status: models.StatusWaiting,
	}
	if err := st.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	verifier := &auth.StaticVerifier{Tokens: map[string]*auth.Identity{
		"good-token": {ID: "user-1"},
	}}
	searcher := stubSearcher{results: []models.SearchResult{
		{Title: "Solar", URL: "https://x", Snippet: "Recent findings on solar energy", Source: "web"},
	}}
	pipeline := content.NewPipeline(&scriptedLLM{failOn: failOn}, testLogger())

	wf := New(verifier, st, searcher, pipeline, "good-token", "user-1", testLogger())
	return wf, task.ID
}

func taskStatus(t *testing.T, st store.Store, id string) models.TaskStatus {
	t.Helper()
	task, err := st.GetTask(context.Background(), id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	return task.Status
}

func progressByAgent(t *testing.T, st store.Store, id string) map[string]models.StageProgress {
	t.Helper()
	rows, err := st.Progress(context.Background(), id)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	out := map[string]models.StageProgress{}
	for _, r := range rows {
		out[r.AgentName] = r
	}
	return out
}

func TestRunCompletesEndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	wf, taskID := setup(t, st, "")

	if err := wf.Run(context.Background(), taskID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := taskStatus(t, st, taskID); got != models.StatusCompleted {
		t.Errorf("task status = %q, want completed", got)
	}

	report, err := st.GetResult(context.Background(), taskID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if report.TotalSections < 3 {
		t.Errorf("total sections = %d, want >= 3", report.TotalSections)
	}
	var cited bool
	for _, s := range report.Sources {
		if s.URL == "https://x" {
			cited = true
		}
	}
	if !cited {
		t.Errorf("cited source https://x missing from %+v", report.Sources)
	}
	if report.Summary == "" || report.Title == "" {
		t.Errorf("summary/title missing: %+v", report)
	}
	if len(report.Perspectives) != 3 {
		t.Errorf("perspectives = %d, want 3", len(report.Perspectives))
	}

	rows := progressByAgent(t, st, taskID)
	if len(rows) != 5 {
		t.Fatalf("progress rows = %d, want 5", len(rows))
	}
	for agent, row := range rows {
		if row.Status != models.StageCompleted || row.Progress != 100 {
			t.Errorf("agent %s = %s/%d, want completed/100", agent, row.Status, row.Progress)
		}
	}
}

func TestRunStageFailureAbortsChain(t *testing.T) {
	cases := []struct {
		name        string
		failOn      string
		failedAgent string
		waiting     []string
	}{
		{
			name:        "outline stage",
			failOn:      "research outline",
			failedAgent: AgentEditor,
			waiting:     []string{AgentResearcher, AgentFactChecker, AgentSynthesis},
		},
		{
			name:        "drafting stage",
			failOn:      "Write comprehensive content",
			failedAgent: AgentResearcher,
			waiting:     []string{AgentFactChecker, AgentSynthesis},
		},
		{
			name:        "review stage",
			failOn:      "Review and enhance",
			failedAgent: AgentFactChecker,
			waiting:     []string{AgentSynthesis},
		},
		{
			name:        "compile stage",
			failOn:      "executive summary",
			failedAgent: AgentSynthesis,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			wf, taskID := setup(t, st, tc.failOn)

			if err := wf.Run(context.Background(), taskID); err == nil {
				t.Fatal("Run should return the stage error")
			}

			if got := taskStatus(t, st, taskID); got != models.StatusWaiting {
				t.Errorf("task status = %q, want waiting", got)
			}

			rows := progressByAgent(t, st, taskID)
			if row := rows[tc.failedAgent]; row.Status != models.StageError || row.Progress != 0 {
				t.Errorf("failed agent %s = %s/%d, want error/0", tc.failedAgent, row.Status, row.Progress)
			}
			// later stages must not have run
			for _, agent := range tc.waiting {
				if row := rows[agent]; row.Status != models.StageWaiting {
					t.Errorf("agent %s = %s, want waiting", agent, row.Status)
				}
			}
			// no report may have been published
			if _, err := st.GetResult(context.Background(), taskID); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("result should not exist after stage failure, got err=%v", err)
			}
		})
	}
}

func TestRunPublishFailureResetsStatus(t *testing.T) {
	base := store.NewMemoryStore()
	st := &failingSaveStore{Store: base}
	wf, taskID := setup(t, st, "")

	if err := wf.Run(context.Background(), taskID); err == nil {
		t.Fatal("Run should surface the publish failure")
	}
	if got := taskStatus(t, st, taskID); got != models.StatusWaiting {
		t.Errorf("task status = %q, want waiting", got)
	}
	// the synthesis row completed before publication failed
	rows := progressByAgent(t, st, taskID)
	if row := rows[AgentSynthesis]; row.Status != models.StageCompleted {
		t.Errorf("synthesis agent = %s, want completed", row.Status)
	}
}

func TestRunRejectsUserMismatch(t *testing.T) {
	st := store.NewMemoryStore()
	wf, taskID := setup(t, st, "")

	// same verifier, different expected user
	other := New(wf.auth, st, wf.searcher, wf.pipeline, "good-token", "someone-else", testLogger())
	err := other.Run(context.Background(), taskID)
	if !errors.Is(err, ErrUserMismatch) {
		t.Fatalf("err = %v, want ErrUserMismatch", err)
	}
}

func TestRunRejectsForeignTask(t *testing.T) {
	st := store.NewMemoryStore()
	_, taskID := setup(t, st, "")

	verifier := &auth.StaticVerifier{Tokens: map[string]*auth.Identity{
		"other-token": {ID: "user-2"},
	}}
	pipeline := content.NewPipeline(&scriptedLLM{}, testLogger())
	wf := New(verifier, st, stubSearcher{}, pipeline, "other-token", "user-2", testLogger())

	err := wf.Run(context.Background(), taskID)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
}

func TestRunMissingTask(t *testing.T) {
	st := store.NewMemoryStore()
	verifier := &auth.StaticVerifier{Tokens: map[string]*auth.Identity{
		"good-token": {ID: "user-1"},
	}}
	pipeline := content.NewPipeline(&scriptedLLM{}, testLogger())
	wf := New(verifier, st, stubSearcher{}, pipeline, "good-token", "user-1", testLogger())

	err := wf.Run(context.Background(), "no-such-task")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want wrapped ErrNotFound", err)
	}
}
