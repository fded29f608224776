package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS player (
			key TEXT PRIMARY KEY,
			level INTEGER DEFAULT 1,
			xp_total INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			difficulty INTEGER DEFAULT 0,
			importance INTEGER DEFAULT 0,
			deadline TEXT,
			label TEXT,
			urgent INTEGER DEFAULT 0,
			collaborative INTEGER DEFAULT 0,
			experience INTEGER NOT NULL,
			completed INTEGER DEFAULT 0,
			created_at TEXT,

			is_project INTEGER DEFAULT 0,
			subtasks TEXT,
			is_shared INTEGER DEFAULT 0,
			owner_id TEXT,
			shared_with TEXT
		);`,
		// One row per completion; the snapshot keeps the task as it was when completed.
		`CREATE TABLE IF NOT EXISTS task_completions (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			completed_at TEXT,
			early_bonus INTEGER NOT NULL DEFAULT 0,
			overdue_penalty INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS badges (
			id TEXT PRIMARY KEY,
			unlocked_at TEXT NOT NULL,
			notified INTEGER DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);`,
		`CREATE INDEX IF NOT EXISTS idx_task_completions_task_id ON task_completions(task_id);`,
		`CREATE INDEX IF NOT EXISTS idx_task_completions_completed_at ON task_completions(completed_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Columns added after the first release (ignore if already present).
	alterStmts := []string{
		`ALTER TABLE tasks ADD COLUMN label TEXT;`,
	}
	for _, stmt := range alterStmts {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("migrate alter: %w", err)
		}
	}

	return nil
}
