package engine

import (
	"context"
	"fmt"
	"time"

	"taskquest/internal/model"
	"taskquest/internal/storage"
)

// Snapshot is a full copy of one user's session, used for backups.
type Snapshot struct {
	UserID    string                `json:"userId"`
	TakenAt   time.Time             `json:"takenAt"`
	TotalXP   int                   `json:"totalXp"`
	Tasks     []model.Task          `json:"tasks"`
	Completed []model.CompletedTask `json:"completed"`
	Badges    []UnlockedBadge       `json:"badges"`
}

type UnlockedBadge struct {
	ID         BadgeID   `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
	Notified   bool      `json:"notified"`
}

func (s *Service) ExportSnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := s.completions.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.badges.ListUnlocked(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		UserID:    userID,
		TakenAt:   s.now().UTC(),
		TotalXP:   s.scoring.TotalExperience(),
		Tasks:     tasks,
		Completed: completed,
	}
	for _, r := range records {
		snap.Badges = append(snap.Badges, UnlockedBadge{ID: BadgeID(r.ID), UnlockedAt: r.UnlockedAt, Notified: r.Notified})
	}
	return snap, nil
}

// ImportSnapshot replaces the whole local session with snap.
func (s *Service) ImportSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return ValidationError{Field: "snapshot", Reason: "empty snapshot"}
	}

	err := storage.WithTx(ctx, s.db, func(tx storage.DBTX) error {
		tasks := storage.NewTaskRepo(tx)
		completions := storage.NewCompletionRepo(tx)
		if err := tasks.DeleteAll(ctx); err != nil {
			return err
		}
		if err := completions.DeleteAll(ctx); err != nil {
			return err
		}
		for _, t := range snap.Tasks {
			if err := tasks.Insert(ctx, t); err != nil {
				return fmt.Errorf("import task %s: %w", t.ID, err)
			}
		}
		for _, c := range snap.Completed {
			if err := completions.Insert(ctx, c); err != nil {
				return fmt.Errorf("import completion %s: %w", c.CompletionID, err)
			}
		}

		records := make([]storage.BadgeRecord, 0, len(snap.Badges))
		for _, b := range snap.Badges {
			records = append(records, storage.BadgeRecord{ID: string(b.ID), UnlockedAt: b.UnlockedAt, Notified: b.Notified})
		}
		if err := storage.NewBadgeRepo(tx).Replace(ctx, records); err != nil {
			return err
		}

		players := storage.NewPlayerRepo(tx)
		if _, err := players.GetOrCreateMain(ctx); err != nil {
			return err
		}
		total := snap.TotalXP
		if total < 0 {
			total = 0
		}
		return players.Update(ctx, &storage.Player{
			Key:     storage.MainPlayerKey,
			Level:   LevelForTotalXP(total),
			XPTotal: total,
		})
	})
	if err != nil {
		return err
	}
	return s.reload(ctx)
}
