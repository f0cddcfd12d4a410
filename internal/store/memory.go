package store

import (
	"context"
	"sync"
	"time"

	"github.com/example/research-orchestrator/internal/models"
)

// MemoryStore is an in-process Store used in tests and local development when
// no database path is configured.
type MemoryStore struct {
	mu       sync.Mutex
	tasks    map[string]*models.Task
	progress map[string][]models.StageProgress
	results  map[string]*models.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    map[string]*models.Task{},
		progress: map[string][]models.StageProgress{},
		results:  map[string]*models.Report{},
	}
}

func (m *MemoryStore) CreateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) SetTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) InitProgress(ctx context.Context, rows []models.StageProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.UpdatedAt = time.Now()
		m.progress[r.TaskID] = append(m.progress[r.TaskID], r)
	}
	return nil
}

func (m *MemoryStore) SetProgress(ctx context.Context, taskID, agentName string, status models.StageStatus, progress int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.progress[taskID]
	for i := range rows {
		if rows[i].AgentName == agentName {
			rows[i].Status = status
			rows[i].Progress = progress
			rows[i].CurrentTask = message
			rows[i].UpdatedAt = time.Now()
		}
	}
	return nil
}

func (m *MemoryStore) Progress(ctx context.Context, taskID string) ([]models.StageProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.progress[taskID]
	out := make([]models.StageProgress, len(rows))
	copy(out, rows)
	return out, nil
}

func (m *MemoryStore) SaveResult(ctx context.Context, taskID string, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[taskID] = sanitizeReport(report)
	return nil
}

func (m *MemoryStore) GetResult(ctx context.Context, taskID string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}
