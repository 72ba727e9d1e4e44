package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"journeycal/internal/model"
)

// NewGoal is the input for CreateGoal. Tasks are created in the same
// transaction and linked to the new goal.
type NewGoal struct {
	Title       string
	Description *string
	Tasks       []NewTask
}

// CreateGoal inserts a goal and its initial tasks atomically.
func (s *Store) CreateGoal(ctx context.Context, in NewGoal) (model.Goal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Goal{}, fmt.Errorf("%w: goal title is required", ErrInvalidInput)
	}

	g := model.Goal{
		ID:          s.newID(),
		Title:       title,
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Goal{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO goals (id, title, description, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Title, nullString(g.Description), toUnix(g.CreatedAt)); err != nil {
		return model.Goal{}, fmt.Errorf("failed to create goal: %w", err)
	}

	for _, nt := range in.Tasks {
		goalID := g.ID
		nt.GoalID = &goalID
		if _, err := s.insertTask(ctx, tx, nt); err != nil {
			return model.Goal{}, fmt.Errorf("failed to create tasks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Goal{}, err
	}
	return g, nil
}

const goalColumns = `id, title, description, created_at, completed_at`

// ListGoals returns all goals, newest first.
func (s *Store) ListGoals(ctx context.Context) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch goals: %w", err)
	}
	defer rows.Close()

	out := make([]model.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListGoalsWithTasks returns every goal, newest first, with its tasks.
func (s *Store) ListGoalsWithTasks(ctx context.Context) ([]model.GoalWithTasks, error) {
	goals, err := s.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.GoalWithTasks, 0, len(goals))
	for _, g := range goals {
		tasks, err := s.listTasksForGoal(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.GoalWithTasks{Goal: g, Tasks: tasks})
	}
	return out, nil
}

// GetGoalWithTasks loads one goal and its tasks ordered by date and start.
func (s *Store) GetGoalWithTasks(ctx context.Context, id string) (model.GoalWithTasks, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return model.GoalWithTasks{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.GoalWithTasks{}, fmt.Errorf("failed to fetch goal: %w", err)
	}
	tasks, err := s.listTasksForGoal(ctx, id)
	if err != nil {
		return model.GoalWithTasks{}, err
	}
	return model.GoalWithTasks{Goal: g, Tasks: tasks}, nil
}

// SetGoalCompleted stamps or clears the goal's completion time.
func (s *Store) SetGoalCompleted(ctx context.Context, id string, completed bool) error {
	var at sql.NullInt64
	if completed {
		at = sql.NullInt64{Int64: toUnix(s.now()), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE goals SET completed_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return checkAffected(res, "goal", id)
}

// DeleteGoal removes the goal's tasks and then the goal, in one transaction.
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE goal_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete goal tasks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if err := checkAffected(res, "goal", id); err != nil {
		return err
	}
	return tx.Commit()
}

func scanGoal(r rowScanner) (model.Goal, error) {
	var (
		g           model.Goal
		desc        sql.NullString
		createdAt   int64
		completedAt sql.NullInt64
	)
	if err := r.Scan(&g.ID, &g.Title, &desc, &createdAt, &completedAt); err != nil {
		return model.Goal{}, err
	}
	g.Description = stringPtr(desc)
	g.CreatedAt = fromUnix(createdAt)
	if completedAt.Valid {
		t := fromUnix(completedAt.Int64)
		g.CompletedAt = &t
	}
	return g, nil
}
