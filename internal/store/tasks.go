package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"journeycal/internal/model"
	"journeycal/internal/timeline"
)

// NewTask is the input for AddTask. Times are HH:MM.
type NewTask struct {
	GoalID    *string
	Title     string
	Type      model.TaskType
	Date      *string
	StartTime *string
	EndTime   *string
	Notes     *string
}

const taskColumns = `id, goal_id, title, type, date, start_time, end_time, completed, notes, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AddTask validates and inserts a task.
func (s *Store) AddTask(ctx context.Context, in NewTask) (model.Task, error) {
	return s.insertTask(ctx, s.db, in)
}

func (s *Store) insertTask(ctx context.Context, ex execer, in NewTask) (model.Task, error) {
	row, err := s.prepareTask(in)
	if err != nil {
		return model.Task{}, err
	}

	_, err = ex.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		row.ID,
		nullString(row.GoalID),
		row.Title,
		string(row.Type),
		nullString(row.Date),
		storedClock(row.StartTime),
		storedClock(row.EndTime),
		nullString(row.Notes),
		toUnix(row.CreatedAt),
	)
	if err != nil {
		if row.GoalID != nil && isForeignKeyViolation(err) {
			return model.Task{}, fmt.Errorf("%w: goal %s does not exist", ErrInvalidInput, *row.GoalID)
		}
		return model.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return row, nil
}

// isForeignKeyViolation reports a rejected goal_id reference.
func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func (s *Store) prepareTask(in NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return model.Task{}, fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, in.Type)
	}
	if in.Date != nil {
		if _, err := time.Parse(model.DateLayout, *in.Date); err != nil {
			return model.Task{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, *in.Date)
		}
	}
	start, err := normalizeClock(in.StartTime)
	if err != nil {
		return model.Task{}, err
	}
	end, err := normalizeClock(in.EndTime)
	if err != nil {
		return model.Task{}, err
	}

	return model.Task{
		ID:        s.newID(),
		GoalID:    in.GoalID,
		Title:     title,
		Type:      in.Type,
		Date:      in.Date,
		StartTime: start,
		EndTime:   end,
		Notes:     in.Notes,
		CreatedAt: s.now().UTC(),
	}, nil
}

// ListTasksForDate returns the tasks of one day ordered by start time, ties
// broken by creation order.
func (s *Store) ListTasksForDate(ctx context.Context, date string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE date = ?
		ORDER BY start_time IS NULL, start_time, created_at, rowid`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks for %s: %w", date, err)
	}
	return collectTasks(rows)
}

func (s *Store) listTasksForGoal(ctx context.Context, goalID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE goal_id = ?
		ORDER BY date, start_time, created_at, rowid`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return collectTasks(rows)
}

// GetTask loads one task.
func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ToggleTask sets the completion flag.
func (s *Store) ToggleTask(ctx context.Context, id string, completed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return fmt.Errorf("failed to toggle task: %w", err)
	}
	return checkAffected(res, "task", id)
}

// UpdateTaskNotes replaces the notes of a task.
func (s *Store) UpdateTaskNotes(ctx context.Context, id, notes string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update task notes: %w", err)
	}
	return checkAffected(res, "task", id)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return checkAffected(res, "task", id)
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	defer rows.Close()
	out := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(r rowScanner) (model.Task, error) {
	var (
		t                        model.Task
		typ                      string
		goalID, date, start, end sql.NullString
		notes                    sql.NullString
		createdAt                int64
	)
	if err := r.Scan(&t.ID, &goalID, &t.Title, &typ, &date, &start, &end, &t.Completed, &notes, &createdAt); err != nil {
		return model.Task{}, err
	}
	t.Type = model.TaskType(typ)
	t.GoalID = stringPtr(goalID)
	t.Date = stringPtr(date)
	t.StartTime = displayClock(start)
	t.EndTime = displayClock(end)
	t.Notes = stringPtr(notes)
	t.CreatedAt = fromUnix(createdAt)
	return t, nil
}

// normalizeClock validates an optional HH:MM value. Empty strings count as
// absent.
func normalizeClock(p *string) (*string, error) {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil, nil
	}
	c, err := timeline.ParseClock(*p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	v := c.String()
	return &v, nil
}

// storedClock is the HH:MM:SS column form of an HH:MM value.
func storedClock(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p + ":00", Valid: true}
}

func displayClock(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	c, err := timeline.ParseClock(ns.String)
	if err != nil {
		return nil
	}
	v := c.String()
	return &v
}
