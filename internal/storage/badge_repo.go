package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BadgeRepo persists the sticky unlock set and which unlocks were already announced.
type BadgeRepo struct {
	db DBTX
}

func NewBadgeRepo(db DBTX) *BadgeRepo {
	return &BadgeRepo{db: db}
}

func (r *BadgeRepo) ListUnlocked(ctx context.Context) ([]BadgeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, unlocked_at, notified FROM badges ORDER BY unlocked_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("badge list: %w", err)
	}
	defer rows.Close()

	var out []BadgeRecord
	for rows.Next() {
		var (
			b          BadgeRecord
			unlockedAt string
			notified   int
		)
		if err := rows.Scan(&b.ID, &unlockedAt, &notified); err != nil {
			return nil, fmt.Errorf("badge scan: %w", err)
		}
		b.UnlockedAt = parseTime(unlockedAt)
		b.Notified = notified != 0
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("badge rows: %w", err)
	}
	return out, nil
}

// Unlock records ids as unlocked. Already-unlocked badges keep their original time.
func (r *BadgeRepo) Unlock(ctx context.Context, at time.Time, ids ...string) error {
	for _, id := range ids {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO badges (id, unlocked_at) VALUES (?, ?)
			ON CONFLICT(id) DO NOTHING
		`, id, formatTime(at))
		if err != nil {
			return fmt.Errorf("badge unlock %s: %w", id, err)
		}
	}
	return nil
}

func (r *BadgeRepo) IsNotified(ctx context.Context, id string) (bool, error) {
	var notified int
	err := r.db.QueryRowContext(ctx, `SELECT notified FROM badges WHERE id = ?`, id).Scan(&notified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("badge notified get: %w", err)
	}
	return notified != 0, nil
}

func (r *BadgeRepo) MarkNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO badges (id, unlocked_at, notified) VALUES (?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET notified = 1
	`, id, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("badge mark notified: %w", err)
	}
	return nil
}

// Replace clears the badge table and writes records; used by snapshot import.
func (r *BadgeRepo) Replace(ctx context.Context, records []BadgeRecord) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM badges`); err != nil {
		return fmt.Errorf("badge clear: %w", err)
	}
	for _, b := range records {
		_, err := r.db.ExecContext(ctx, `INSERT INTO badges (id, unlocked_at, notified) VALUES (?, ?, ?)`,
			b.ID, formatTime(b.UnlockedAt), boolToInt(b.Notified))
		if err != nil {
			return fmt.Errorf("badge insert %s: %w", b.ID, err)
		}
	}
	return nil
}
