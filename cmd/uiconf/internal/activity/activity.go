// Package activity stores the per-user activity log that external
// systems page through: task submissions, status changes and other
// events, each tagged with a log type and a model name.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ulid"
)

const tableName = "activity_logs"

// Log types. The numbering is shared with existing consumers of the log
// listing, so values must not be renumbered.
const (
	TypeUnknown = iota
	TypeTopup
	TypeConsume
	TypeManage
	TypeSystem
	TypeError
)

var ErrInvalidLog = errors.New("invalid activity log")

// IsType reports whether t is a concrete log type. TypeUnknown is only
// meaningful as the "any type" filter.
func IsType(t int) bool {
	return t >= TypeTopup && t <= TypeError
}

// Log is one recorded event.
type Log struct {
	ID        string    `json:"id"`
	Type      int       `json:"type"`
	UserID    string    `json:"user_id"`
	Model     string    `json:"model_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows List and Count. Zero fields match everything; Start and
// End bound CreatedAt inclusively.
type Filter struct {
	Type   int
	UserID string
	Model  string
	Start  time.Time
	End    time.Time
}

// Repository persists logs through a database.Driver.
type Repository struct {
	db  database.Driver
	now func() time.Time
}

// NewRepository creates a repository. Call EnsureSchema before use.
func NewRepository(db database.Driver) *Repository {
	return &Repository{db: db, now: time.Now}
}

// EnsureSchema creates the log table and its indexes.
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
	type INTEGER NOT NULL,
	user_id VARCHAR(255) NOT NULL,
	model_name VARCHAR(255) NOT NULL,
	content TEXT NOT NULL,
	created_at BIGINT NOT NULL
)`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", tableName, err)
	}
	for _, idx := range []string{
		"CREATE INDEX idx_activity_logs_user_id ON " + tableName + " (user_id)",
		"CREATE INDEX idx_activity_logs_created_at ON " + tableName + " (created_at)",
	} {
		if _, err := r.db.Exec(ctx, idx); err != nil {
			return fmt.Errorf("failed to index %s: %w", tableName, err)
		}
	}
	return nil
}

// Record validates l, assigns its id and timestamp, and stores it.
func (r *Repository) Record(ctx context.Context, l Log) (Log, error) {
	if !IsType(l.Type) {
		return Log{}, fmt.Errorf("%w: type %d", ErrInvalidLog, l.Type)
	}
	if l.UserID == "" {
		return Log{}, fmt.Errorf("%w: user is required", ErrInvalidLog)
	}
	l.Model = strings.TrimSpace(l.Model)

	now := r.now().UTC()
	l.ID = ulid.GenerateWithTime(now)
	l.CreatedAt = now.Truncate(time.Second)

	p := r.db.Placeholder
	query := fmt.Sprintf(
		"INSERT INTO %s (id, type, user_id, model_name, content, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		tableName, p(1), p(2), p(3), p(4), p(5), p(6))
	if _, err := r.db.Exec(ctx, query, l.ID, l.Type, l.UserID, l.Model, l.Content, l.CreatedAt.Unix()); err != nil {
		return Log{}, fmt.Errorf("failed to record activity: %w", err)
	}
	return l, nil
}

// List returns matching logs, newest first.
func (r *Repository) List(ctx context.Context, f Filter, offset, limit int) ([]Log, error) {
	where, args := r.where(f)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id DESC LIMIT %s OFFSET %s",
		columns, tableName, where, r.db.Placeholder(len(args)+1), r.db.Placeholder(len(args)+2))
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	logs := []Log{}
	for rows.Next() {
		var (
			l         Log
			createdAt int64
		)
		if err := rows.Scan(&l.ID, &l.Type, &l.UserID, &l.Model, &l.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		l.CreatedAt = time.Unix(createdAt, 0).UTC()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, nil
}

// Count returns the number of matching logs.
func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := r.where(f)
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableName+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}
	return n, nil
}

func (r *Repository) where(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, clause+r.db.Placeholder(len(args)))
	}
	if f.Type != TypeUnknown {
		add("type = ", f.Type)
	}
	if f.UserID != "" {
		add("user_id = ", f.UserID)
	}
	if f.Model != "" {
		add("model_name = ", f.Model)
	}
	if !f.Start.IsZero() {
		add("created_at >= ", f.Start.Unix())
	}
	if !f.End.IsZero() {
		add("created_at <= ", f.End.Unix())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const columns = "id, type, user_id, model_name, content, created_at"
