package store

import (
	"context"
	"database/sql"
	"fmt"

	"journeycal/internal/model"
)

// GetPreferences returns the stored preferences or ErrNotFound if none were
// saved yet.
func (s *Store) GetPreferences(ctx context.Context) (model.Preferences, error) {
	var (
		p                    model.Preferences
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, preferences_text, created_at, updated_at FROM preferences ORDER BY created_at LIMIT 1`,
	).Scan(&p.ID, &p.Text, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return model.Preferences{}, fmt.Errorf("preferences: %w", ErrNotFound)
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("failed to fetch user preferences: %w", err)
	}
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return p, nil
}

// SavePreferences updates the existing preferences row or creates one.
func (s *Store) SavePreferences(ctx context.Context, text string) (model.Preferences, error) {
	now := s.now().UTC()

	existing, err := s.GetPreferences(ctx)
	switch {
	case err == nil:
		if _, err := s.db.ExecContext(ctx, `UPDATE preferences SET preferences_text = ?, updated_at = ? WHERE id = ?`,
			text, toUnix(now), existing.ID); err != nil {
			return model.Preferences{}, fmt.Errorf("failed to update user preferences: %w", err)
		}
		existing.Text = text
		existing.UpdatedAt = now
		return existing, nil

	case isNotFound(err):
		p := model.Preferences{ID: s.newID(), Text: text, CreatedAt: now, UpdatedAt: now}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO preferences (id, preferences_text, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			p.ID, p.Text, toUnix(now), toUnix(now)); err != nil {
			return model.Preferences{}, fmt.Errorf("failed to create user preferences: %w", err)
		}
		return p, nil

	default:
		return model.Preferences{}, err
	}
}

// DeletePreferences removes any stored preferences.
func (s *Store) DeletePreferences(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences`); err != nil {
		return fmt.Errorf("failed to delete user preferences: %w", err)
	}
	return nil
}
