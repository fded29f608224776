package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"taskquest/internal/model"
)

type TaskRepo struct {
	db DBTX
}

func NewTaskRepo(db DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, name, description, difficulty, importance, deadline, label,
	urgent, collaborative, experience, completed, created_at,
	is_project, subtasks, is_shared, owner_id, shared_with`

func (r *TaskRepo) Insert(ctx context.Context, t model.Task) error {
	subtasks, sharedWith, err := marshalProjectFields(t)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Description, t.Difficulty, t.Importance, deadlineValue(t.Deadline), t.Label,
		boolToInt(t.Urgent), boolToInt(t.Collaborative), t.Experience, boolToInt(t.Completed), formatTime(t.CreatedAt),
		boolToInt(t.IsProject), subtasks, boolToInt(t.IsShared), t.OwnerID, sharedWith)
	if err != nil {
		return fmt.Errorf("task insert: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of an existing task.
func (r *TaskRepo) Update(ctx context.Context, t model.Task) error {
	subtasks, sharedWith, err := marshalProjectFields(t)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, description = ?, difficulty = ?, importance = ?, deadline = ?, label = ?,
			urgent = ?, collaborative = ?, experience = ?, completed = ?,
			is_project = ?, subtasks = ?, is_shared = ?, owner_id = ?, shared_with = ?
		WHERE id = ?
	`, t.Name, t.Description, t.Difficulty, t.Importance, deadlineValue(t.Deadline), t.Label,
		boolToInt(t.Urgent), boolToInt(t.Collaborative), t.Experience, boolToInt(t.Completed),
		boolToInt(t.IsProject), subtasks, boolToInt(t.IsShared), t.OwnerID, sharedWith, t.ID)
	if err != nil {
		return fmt.Errorf("task update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}
	return nil
}

// Upsert inserts t or replaces the stored copy.
func (r *TaskRepo) Upsert(ctx context.Context, t model.Task) error {
	existing, err := r.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.Insert(ctx, t)
	}
	return r.Update(ctx, t)
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTaskRow(row)
}

func (r *TaskRepo) ListAll(ctx context.Context) ([]model.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
}

// ListOpen returns tasks and projects that are not completed yet.
func (r *TaskRepo) ListOpen(ctx context.Context) ([]model.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE completed = 0 ORDER BY created_at ASC, id ASC`)
}

func (r *TaskRepo) ListShared(ctx context.Context) ([]model.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE is_project = 1 AND is_shared = 1 ORDER BY created_at ASC, id ASC`)
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task list rows: %w", err)
	}
	return out, nil
}

func (r *TaskRepo) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("task mark completed: %w", err)
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("task delete: %w", err)
	}
	return nil
}

func deadlineValue(d *model.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func marshalProjectFields(t model.Task) (subtasks any, sharedWith any, err error) {
	if len(t.Subtasks) > 0 {
		data, err := json.Marshal(t.Subtasks)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal subtasks: %w", err)
		}
		subtasks = string(data)
	}
	if len(t.SharedWith) > 0 {
		data, err := json.Marshal(t.SharedWith)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal shared_with: %w", err)
		}
		sharedWith = string(data)
	}
	return subtasks, sharedWith, nil
}

func scanTaskRow(row scanner) (*model.Task, error) {
	var (
		t             model.Task
		description   sql.NullString
		deadline      sql.NullString
		label         sql.NullString
		urgent        int
		collaborative int
		completed     int
		createdAt     sql.NullString
		isProject     int
		subtasksRaw   sql.NullString
		isShared      int
		ownerID       sql.NullString
		sharedRaw     sql.NullString
	)

	if err := row.Scan(
		&t.ID, &t.Name, &description, &t.Difficulty, &t.Importance, &deadline, &label,
		&urgent, &collaborative, &t.Experience, &completed, &createdAt,
		&isProject, &subtasksRaw, &isShared, &ownerID, &sharedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("task scan: %w", err)
	}

	t.Description = description.String
	t.Label = label.String
	t.Urgent = urgent != 0
	t.Collaborative = collaborative != 0
	t.Completed = completed != 0
	t.CreatedAt = parseTime(createdAt.String)
	t.IsProject = isProject != 0
	t.IsShared = isShared != 0
	t.OwnerID = ownerID.String

	if deadline.Valid && deadline.String != "" {
		d, err := model.ParseDate(deadline.String)
		if err != nil {
			return nil, fmt.Errorf("task %s deadline: %w", t.ID, err)
		}
		t.Deadline = &d
	}
	if subtasksRaw.Valid && subtasksRaw.String != "" {
		if err := json.Unmarshal([]byte(subtasksRaw.String), &t.Subtasks); err != nil {
			return nil, fmt.Errorf("unmarshal subtasks: %w", err)
		}
	}
	if sharedRaw.Valid && sharedRaw.String != "" {
		if err := json.Unmarshal([]byte(sharedRaw.String), &t.SharedWith); err != nil {
			return nil, fmt.Errorf("unmarshal shared_with: %w", err)
		}
	}
	return &t, nil
}

func (r *TaskRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("task delete all: %w", err)
	}
	return nil
}
