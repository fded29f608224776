package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"taskquest/internal/model"
	"taskquest/internal/storage"
)

type CompleteResult struct {
	TaskID         string
	XPAwarded      int
	EarlyBonus     int
	OverduePenalty int
	TotalXP        int
	LevelBefore    int
	NewLevel       int
	LeveledUp      bool
	NewBadges      []Badge
}

// CompleteTask scores a task, records the completion, and re-evaluates badges.
func (s *Service) CompleteTask(ctx context.Context, id string) (*CompleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Completed {
		return nil, fmt.Errorf("task %s: %w", id, ErrAlreadyCompleted)
	}

	completion, change := s.scoring.Complete(*task)
	completion.CompletionID = uuid.NewString()

	err = storage.WithTx(ctx, s.db, func(tx storage.DBTX) error {
		if err := storage.NewCompletionRepo(tx).Insert(ctx, completion); err != nil {
			return err
		}
		if err := storage.NewTaskRepo(tx).MarkCompleted(ctx, id); err != nil {
			return err
		}
		return storage.NewPlayerRepo(tx).Update(ctx, &storage.Player{
			Key:     storage.MainPlayerKey,
			Level:   change.LevelAfter,
			XPTotal: change.TotalAfter,
		})
	})
	if err != nil {
		s.scoring.reset(change.TotalBefore)
		return nil, err
	}

	newBadges, err := s.evaluateLocked(ctx)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if change.LevelUp {
			s.notifier.LevelUp(ctx, change.LevelAfter)
		}
		if len(newBadges) > 0 {
			s.notifier.BadgesUnlocked(ctx, newBadges)
		}
	}

	return &CompleteResult{
		TaskID:         id,
		XPAwarded:      change.Delta,
		EarlyBonus:     completion.EarlyBonus,
		OverduePenalty: completion.OverduePenalty,
		TotalXP:        change.TotalAfter,
		LevelBefore:    change.LevelBefore,
		NewLevel:       change.LevelAfter,
		LeveledUp:      change.LevelUp,
		NewBadges:      newBadges,
	}, nil
}

// RemoveTask deletes a task. When the task was completed its recorded XP,
// bonus and penalty included, is taken back off the total.
func (s *Service) RemoveTask(ctx context.Context, id string, wasCompleted bool) (XPChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.GetTask(ctx, id)
	if err != nil {
		return XPChange{}, err
	}

	var completion *model.CompletedTask
	if wasCompleted || task.Completed {
		completion, err = s.completions.LastForTask(ctx, id)
		if err != nil {
			return XPChange{}, err
		}
	}

	total := s.scoring.TotalExperience()
	change := XPChange{TotalBefore: total, TotalAfter: total, LevelBefore: LevelForTotalXP(total), LevelAfter: LevelForTotalXP(total)}
	if completion != nil {
		change = s.scoring.Reverse(*completion)
	}

	err = storage.WithTx(ctx, s.db, func(tx storage.DBTX) error {
		if completion != nil {
			if err := storage.NewCompletionRepo(tx).Delete(ctx, completion.CompletionID); err != nil {
				return err
			}
			if err := storage.NewPlayerRepo(tx).Update(ctx, &storage.Player{
				Key:     storage.MainPlayerKey,
				Level:   change.LevelAfter,
				XPTotal: change.TotalAfter,
			}); err != nil {
				return err
			}
		}
		return storage.NewTaskRepo(tx).Delete(ctx, id)
	})
	if err != nil {
		s.scoring.reset(change.TotalBefore)
		return XPChange{}, err
	}
	return change, nil
}

// EvaluateBadges re-checks the catalog against the stored history and returns
// badges that were not unlocked before.
func (s *Service) EvaluateBadges(ctx context.Context) ([]Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newBadges, err := s.evaluateLocked(ctx)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil && len(newBadges) > 0 {
		s.notifier.BadgesUnlocked(ctx, newBadges)
	}
	return newBadges, nil
}

// evaluateLocked must be called with s.mu held. Previously unlocked badges
// stay unlocked even if the live stats have dropped below their threshold.
func (s *Service) evaluateLocked(ctx context.Context) ([]Badge, error) {
	completed, err := s.completions.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	level, _ := s.scoring.Level()
	streak := StreakFromCompleted(completed, s.Now())

	current := s.evaluator.Evaluate(level, streak.Current, len(completed), completed)
	newBadges := NewlyUnlocked(s.unlocked, current)
	if len(newBadges) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(newBadges))
	for _, b := range newBadges {
		ids = append(ids, string(b.ID))
	}
	if err := s.badges.Unlock(ctx, s.now(), ids...); err != nil {
		return nil, err
	}
	s.unlocked = s.unlocked.Union(current)
	return newBadges, nil
}

type Stats struct {
	TotalXP        int
	Level          int
	LevelXP        int
	LevelCost      int
	Streak         Streak
	Badges         []Badge
	CompletedCount int
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	completed, err := s.completions.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	level, remainder := s.scoring.Level()
	st := &Stats{
		TotalXP:        s.scoring.TotalExperience(),
		Level:          level,
		LevelXP:        remainder,
		LevelCost:      XPToClear(level),
		Streak:         StreakFromCompleted(completed, s.Now()),
		CompletedCount: len(completed),
	}
	for _, id := range s.unlocked.IDs() {
		if b, ok := LookupBadge(id); ok {
			st.Badges = append(st.Badges, b)
		}
	}
	return st, nil
}

// Unlocked returns a copy of the sticky unlocked set.
func (s *Service) Unlocked() BadgeSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked.Union(nil)
}
