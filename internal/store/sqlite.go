package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/example/research-orchestrator/internal/models"
)

// SQLiteStore persists tasks, stage progress and results in a local SQLite
// database. Progress rows intentionally have no uniqueness constraint on
// (task_id, agent_name): initialization is expected to run exactly once per
// task execution.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) createSchema() error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS research_tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			depth TEXT NOT NULL,
			perspectives TEXT,
			format TEXT,
			sources TEXT,
			timeframe TEXT,
			status TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INTEGER NOT NULL,
			current_task TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_progress_task ON stage_progress(task_id)`,
		`CREATE TABLE IF NOT EXISTS research_results (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			content TEXT,
			sources TEXT,
			perspectives TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, q := range schemas {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	perspectives, _ := json.Marshal(task.Perspectives)
	sources, _ := json.Marshal(task.Sources)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_tasks (id, user_id, topic, depth, perspectives, format, sources, timeframe, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Topic, string(task.Depth), string(perspectives),
		string(task.Format), string(sources), task.Timeframe, string(task.Status))
	return err
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, topic, depth, perspectives, format, sources, timeframe, status, created_at, updated_at
		 FROM research_tasks WHERE id = ?`, id)

	var t models.Task
	var perspectives, sources sql.NullString
	var timeframe sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.Topic, &t.Depth, &perspectives, &t.Format,
		&sources, &timeframe, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if perspectives.Valid {
		_ = json.Unmarshal([]byte(perspectives.String), &t.Perspectives)
	}
	if sources.Valid {
		_ = json.Unmarshal([]byte(sources.String), &t.Sources)
	}
	t.Timeframe = timeframe.String
	return &t, nil
}

func (s *SQLiteStore) SetTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE research_tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) InitProgress(ctx context.Context, rows []models.StageProgress) error {
	for _, r := range rows {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO stage_progress (task_id, agent_name, status, progress, current_task)
			 VALUES (?, ?, ?, ?, ?)`,
			r.TaskID, r.AgentName, string(r.Status), r.Progress, r.CurrentTask)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SetProgress(ctx context.Context, taskID, agentName string, status models.StageStatus, progress int, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE stage_progress SET status = ?, progress = ?, current_task = ?, updated_at = ?
		 WHERE task_id = ? AND agent_name = ?`,
		string(status), progress, message, time.Now().UTC(), taskID, agentName)
	return err
}

func (s *SQLiteStore) Progress(ctx context.Context, taskID string) ([]models.StageProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, agent_name, status, progress, current_task, updated_at
		 FROM stage_progress WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StageProgress
	for rows.Next() {
		var p models.StageProgress
		var msg sql.NullString
		if err := rows.Scan(&p.TaskID, &p.AgentName, &p.Status, &p.Progress, &msg, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CurrentTask = msg.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, taskID string, report *models.Report) error {
	r := sanitizeReport(report)
	content, err := json.Marshal(map[string]any{"sections": r.Sections})
	if err != nil {
		return err
	}
	sources, _ := json.Marshal(r.Sources)
	perspectives, _ := json.Marshal(r.Perspectives)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_results (id, task_id, title, summary, content, sources, perspectives)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), taskID, r.Title, r.Summary, string(content), string(sources), string(perspectives))
	if err != nil {
		return fmt.Errorf("save result for task %s: %w", taskID, err)
	}
	return nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, taskID string) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT title, summary, content, sources, perspectives FROM research_results
		 WHERE task_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, taskID)

	var title, summary string
	var content, sources, perspectives sql.NullString
	err := row.Scan(&title, &summary, &content, &sources, &perspectives)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r := &models.Report{Title: title, Summary: summary}
	if content.Valid {
		var wrapper struct {
			Sections []models.Section `json:"sections"`
		}
		_ = json.Unmarshal([]byte(content.String), &wrapper)
		r.Sections = wrapper.Sections
	}
	if sources.Valid {
		_ = json.Unmarshal([]byte(sources.String), &r.Sources)
	}
	if perspectives.Valid {
		_ = json.Unmarshal([]byte(perspectives.String), &r.Perspectives)
	}
	r.TotalSections = len(r.Sections)
	return r, nil
}
