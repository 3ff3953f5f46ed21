// Package tasks stores generation task records. Each task is labelled
// with one of the task actions shared with the web console.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ulid"
)

const tableName = "tasks"

var (
	ErrNotFound      = errors.New("task not found")
	ErrInvalidAction = errors.New("invalid task action")
	ErrInvalidStatus = errors.New("invalid task status")
	ErrInvalidTask   = errors.New("invalid task")
)

// Task is one submitted generation request.
type Task struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Status    string    `json:"status"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows List and Count. Empty fields match everything.
type Filter struct {
	Action string
	UserID string
}

// Repository persists tasks through a database.Driver.
type Repository struct {
	db  database.Driver
	now func() time.Time
}

// NewRepository creates a repository. Call EnsureSchema before use.
func NewRepository(db database.Driver) *Repository {
	return &Repository{db: db, now: time.Now}
}

// EnsureSchema creates the task table and its user index. The index is
// only created together with the table.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	exists, err := r.db.TableExists(ctx, tableName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	query := `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
	id CHAR(26) NOT NULL PRIMARY KEY,
	action VARCHAR(32) NOT NULL,
	model VARCHAR(255) NOT NULL,
	prompt TEXT NOT NULL,
	status VARCHAR(32) NOT NULL,
	user_id VARCHAR(255) NOT NULL,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
)`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", tableName, err)
	}

	if _, err := r.db.Exec(ctx, "CREATE INDEX idx_tasks_user_id ON "+tableName+" (user_id)"); err != nil {
		return fmt.Errorf("failed to index %s: %w", tableName, err)
	}
	return nil
}

// Create validates t, assigns its id, status and timestamps, and stores it.
func (r *Repository) Create(ctx context.Context, t Task) (Task, error) {
	if !constants.IsTaskAction(t.Action) {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidAction, t.Action)
	}
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		return Task{}, fmt.Errorf("%w: model is required", ErrInvalidTask)
	}
	if t.UserID == "" {
		return Task{}, fmt.Errorf("%w: user is required", ErrInvalidTask)
	}

	now := r.now().UTC()
	t.ID = ulid.GenerateWithTime(now)
	t.Status = constants.TaskStatusSubmitted
	t.CreatedAt = now.Truncate(time.Second)
	t.UpdatedAt = t.CreatedAt

	p := r.db.Placeholder
	query := fmt.Sprintf(
		"INSERT INTO %s (id, action, model, prompt, status, user_id, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)",
		tableName, p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8))
	_, err := r.db.Exec(ctx, query,
		t.ID, t.Action, t.Model, t.Prompt, t.Status, t.UserID, t.CreatedAt.Unix(), t.UpdatedAt.Unix())
	if err != nil {
		return Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// Get returns the task with id or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", columns, tableName, r.db.Placeholder(1))
	t, err := scanTask(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return t, nil
}

// UpdateStatus moves a task to status and returns the updated task.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (Task, error) {
	if !constants.IsTaskStatus(status) {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	query := fmt.Sprintf("UPDATE %s SET status = %s, updated_at = %s WHERE id = %s",
		tableName, r.db.Placeholder(1), r.db.Placeholder(2), r.db.Placeholder(3))
	res, err := r.db.Exec(ctx, query, status, r.now().UTC().Unix(), id)
	if err != nil {
		return Task{}, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Task{}, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	if n == 0 {
		return Task{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// List returns matching tasks, newest first.
func (r *Repository) List(ctx context.Context, f Filter, offset, limit int) ([]Task, error) {
	where, args := r.where(f)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id DESC LIMIT %s OFFSET %s",
		columns, tableName, where, r.db.Placeholder(len(args)+1), r.db.Placeholder(len(args)+2))
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Count returns the number of matching tasks.
func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := r.where(f)
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableName+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// where builds the WHERE clause for f. An invalid action in the filter
// is the caller's mistake; it simply matches nothing.
func (r *Repository) where(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Action != "" {
		args = append(args, f.Action)
		clauses = append(clauses, "action = "+r.db.Placeholder(len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		clauses = append(clauses, "user_id = "+r.db.Placeholder(len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const columns = "id, action, model, prompt, status, user_id, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var (
		t                    Task
		createdAt, updatedAt int64
	)
	if err := s.Scan(&t.ID, &t.Action, &t.Model, &t.Prompt, &t.Status, &t.UserID, &createdAt, &updatedAt); err != nil {
		return Task{}, err
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return t, nil
}
