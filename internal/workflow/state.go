package workflow

import (
	"github.com/example/research-orchestrator/internal/models"
)

// Step labels, advisory only. They describe where one execution currently is
// for external observers; control flow never branches on them.
const (
	stepWebResearch      = "web_research"
	stepOutlinePlanning  = "outline_planning"
	stepParallelResearch = "parallel_research"
	stepReviewRevision   = "review_revision"
	stepCompilation      = "compilation"
	stepPublication      = "publication"
	stepCompleted        = "completed"
)

// State is the value threaded through the pipeline for one execution.
// Fields are populated strictly left-to-right: a stage reads only what
// earlier stages produced and writes only the field it owns. One execution
// owns one State; it is never shared across tasks and never persisted
// directly.
type State struct {
	Task             *models.Task
	SearchResults    []models.SearchResult
	Outline          *models.Outline
	SectionDrafts    []models.Section
	ReviewedSections []models.Section
	FinalReport      *models.Report
	CurrentStep      string
}

func newState(task *models.Task) *State {
	return &State{Task: task, CurrentStep: stepWebResearch}
}
