package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"taskquest/internal/model"
)

type CompletionRepo struct {
	db DBTX
}

func NewCompletionRepo(db DBTX) *CompletionRepo {
	return &CompletionRepo{db: db}
}

func (r *CompletionRepo) Insert(ctx context.Context, c model.CompletedTask) error {
	snapshot, err := json.Marshal(c.Task)
	if err != nil {
		return fmt.Errorf("marshal completion snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO task_completions (id, task_id, snapshot, completed_at, early_bonus, overdue_penalty)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.CompletionID, c.ID, string(snapshot), formatTime(c.CompletedAt), c.EarlyBonus, c.OverduePenalty)
	if err != nil {
		return fmt.Errorf("completion insert: %w", err)
	}
	return nil
}

// ListAll returns the completion history oldest first. Rows without a
// completion time sort first and keep a zero CompletedAt.
func (r *CompletionRepo) ListAll(ctx context.Context) ([]model.CompletedTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, snapshot, completed_at, early_bonus, overdue_penalty
		FROM task_completions
		ORDER BY completed_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("completion list: %w", err)
	}
	defer rows.Close()

	var out []model.CompletedTask
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("completion rows: %w", err)
	}
	return out, nil
}

// LastForTask returns the most recent completion of taskID, or nil.
func (r *CompletionRepo) LastForTask(ctx context.Context, taskID string) (*model.CompletedTask, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, snapshot, completed_at, early_bonus, overdue_penalty
		FROM task_completions
		WHERE task_id = ?
		ORDER BY completed_at DESC
		LIMIT 1
	`, taskID)
	c, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CompletionRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_completions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("completion count: %w", err)
	}
	return n, nil
}

func (r *CompletionRepo) Delete(ctx context.Context, completionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM task_completions WHERE id = ?`, completionID)
	if err != nil {
		return fmt.Errorf("completion delete: %w", err)
	}
	return nil
}

func scanCompletion(row scanner) (*model.CompletedTask, error) {
	var (
		c           model.CompletedTask
		snapshot    string
		completedAt sql.NullString
	)
	if err := row.Scan(&c.CompletionID, &snapshot, &completedAt, &c.EarlyBonus, &c.OverduePenalty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("completion scan: %w", err)
	}
	if err := json.Unmarshal([]byte(snapshot), &c.Task); err != nil {
		return nil, fmt.Errorf("unmarshal completion snapshot: %w", err)
	}
	c.CompletedAt = parseTime(completedAt.String)
	return &c, nil
}

func (r *CompletionRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM task_completions`); err != nil {
		return fmt.Errorf("completion delete all: %w", err)
	}
	return nil
}
