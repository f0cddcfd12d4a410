package models

import (
	"time"
)

// Depth is the requested level of detail for a research task.
type Depth string

const (
	DepthBasic        Depth = "basic"
	DepthIntermediate Depth = "intermediate"
	DepthAdvanced     Depth = "advanced"
)

// Format is the requested output format for the final report.
type Format string

const (
	FormatMarkdown     Format = "markdown"
	FormatPDF          Format = "pdf"
	FormatPresentation Format = "presentation"
)

// TaskStatus is the overall status of a research task. The workflow core only
// ever writes StatusInitializing, StatusCompleted and StatusWaiting; the
// intermediate labels exist for observers and match State.CurrentStep values.
type TaskStatus string

const (
	StatusWaiting          TaskStatus = "waiting"
	StatusInitializing     TaskStatus = "initializing"
	StatusWebResearch      TaskStatus = "web-research"
	StatusOutlinePlanning  TaskStatus = "outline_planning"
	StatusParallelResearch TaskStatus = "parallel_research"
	StatusReviewRevision   TaskStatus = "review_revision"
	StatusCompilation      TaskStatus = "compilation"
	StatusCompleted        TaskStatus = "completed"
	StatusError            TaskStatus = "error"
)

// StageStatus is the status of a single stage agent.
type StageStatus string

const (
	StageWaiting   StageStatus = "waiting"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
	StageError     StageStatus = "error"
)

// Task is one research request. UserID is immutable after creation; Status is
// the only field the workflow core mutates.
type Task struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Topic        string     `json:"topic"`
	Depth        Depth      `json:"depth"`
	Perspectives []string   `json:"perspectives"`
	Format       Format     `json:"format"`
	Sources      []string   `json:"sources"`
	Timeframe    string     `json:"timeframe,omitempty"`
	Status       TaskStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StageProgress is the persisted progress row for one (task, agent) pair.
type StageProgress struct {
	TaskID      string      `json:"task_id"`
	AgentName   string      `json:"agent_name"`
	Status      StageStatus `json:"status"`
	Progress    int         `json:"progress"`
	CurrentTask string      `json:"current_task"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SearchResult is one ranked snippet from the search capability. Read-only
// once produced.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// OutlineSection is one planned section of the report.
type OutlineSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Outline is the structured research outline produced by the outline stage.
type Outline struct {
	Topic    string           `json:"topic"`
	Sections []OutlineSection `json:"sections"`
	Text     string           `json:"outline_text,omitempty"`
}

// Section is a drafted or reviewed report section. Status is "drafted" after
// the drafting stage and "reviewed" after review.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status,omitempty"`
}

// Source is one cited reference, deduplicated by URL.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Perspective is one stakeholder viewpoint in the final report.
type Perspective struct {
	Title     string   `json:"title"`
	Viewpoint string   `json:"viewpoint"`
	Evidence  []string `json:"evidence"`
}

// Report is the compiled final result, persisted verbatim on publication.
type Report struct {
	Title         string        `json:"title,omitempty"`
	Summary       string        `json:"summary"`
	Sections      []Section     `json:"sections"`
	Sources       []Source      `json:"sources"`
	Perspectives  []Perspective `json:"perspectives"`
	TotalSections int           `json:"total_sections"`
}

// StartRequest is the trigger payload for the research endpoint.
type StartRequest struct {
	QueryID string `json:"queryId"`
}

// StartResponse is returned immediately after scheduling a workflow run.
// Acceptance does not imply the run will succeed.
type StartResponse struct {
	Message string `json:"message"`
	QueryID string `json:"queryId"`
	Status  string `json:"status"`
}
