package store

import (
	"context"
	"errors"
	"strings"

	"github.com/example/research-orchestrator/internal/models"
)

// ErrNotFound is returned when a task or result row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("store: not found")

// Store is the narrow persistence interface consumed by the workflow core.
// SetProgress is best-effort from the caller's point of view: the workflow
// logs and swallows its errors.
type Store interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	SetTaskStatus(ctx context.Context, id string, status models.TaskStatus) error

	InitProgress(ctx context.Context, rows []models.StageProgress) error
	SetProgress(ctx context.Context, taskID, agentName string, status models.StageStatus, progress int, message string) error
	Progress(ctx context.Context, taskID string) ([]models.StageProgress, error)

	SaveResult(ctx context.Context, taskID string, report *models.Report) error
	GetResult(ctx context.Context, taskID string) (*models.Report, error)
}

// sanitizeReport applies the persistence-time validation shared by all Store
// implementations: a title derived from the summary, sources with a real
// title only, and perspectives that carry both a title and a viewpoint.
func sanitizeReport(report *models.Report) *models.Report {
	out := *report

	title := report.Title
	if title == "" {
		title = report.Summary
		if i := strings.Index(title, "."); i != -1 {
			title = title[:i]
		}
		if title == "" {
			title = "Research Results"
		}
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}
	out.Title = title

	valid := make([]models.Source, 0, len(report.Sources))
	for _, s := range report.Sources {
		t := strings.TrimSpace(s.Title)
		if t == "" || t == "source" {
			continue
		}
		valid = append(valid, s)
	}
	out.Sources = valid

	keep := make([]models.Perspective, 0, len(report.Perspectives))
	for _, p := range report.Perspectives {
		if p.Title == "" || p.Viewpoint == "" {
			continue
		}
		keep = append(keep, p)
	}
	out.Perspectives = keep

	return &out
}
