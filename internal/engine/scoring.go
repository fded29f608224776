package engine

import (
	"time"

	"taskquest/internal/model"
)

// XPChange describes one adjustment of the running XP total.
type XPChange struct {
	Delta       int
	TotalBefore int
	TotalAfter  int
	LevelBefore int
	LevelAfter  int
	LevelUp     bool
}

// ScoringEngine owns the authoritative XP total of a session. It is not safe
// for concurrent use; Service serializes access.
type ScoringEngine struct {
	totalXP int
	bonus   BonusCalculator
}

// NewScoringEngine seeds an engine with a previously stored total.
func NewScoringEngine(totalXP int, now func() time.Time) *ScoringEngine {
	if totalXP < 0 {
		totalXP = 0
	}
	return &ScoringEngine{totalXP: totalXP, bonus: NewBonusCalculator(now)}
}

func (e *ScoringEngine) TotalExperience() int {
	return e.totalXP
}

// Level returns the current level and XP earned inside it.
func (e *ScoringEngine) Level() (level int, remainder int) {
	return LevelOf(e.totalXP)
}

// apply adds delta to the total, clamping at zero. Level-up is only reported
// for positive deltas so reversals never announce one.
func (e *ScoringEngine) apply(delta int) XPChange {
	before := e.totalXP
	after := before + delta
	if after < 0 {
		after = 0
	}
	e.totalXP = after

	lvlBefore := LevelForTotalXP(before)
	lvlAfter := LevelForTotalXP(after)
	return XPChange{
		Delta:       delta,
		TotalBefore: before,
		TotalAfter:  after,
		LevelBefore: lvlBefore,
		LevelAfter:  lvlAfter,
		LevelUp:     lvlAfter > lvlBefore && delta > 0,
	}
}

// ApplyTaskXP awards baseXP plus the deadline adjustment for a completion
// happening now.
func (e *ScoringEngine) ApplyTaskXP(baseXP int, deadline *model.Date) (XPChange, int, int, time.Time) {
	early, penalty, at := e.bonus.Adjustments(deadline)
	change := e.apply(baseXP + early + penalty)
	return change, early, penalty, at
}

// Complete scores task and returns the frozen completion snapshot.
func (e *ScoringEngine) Complete(task model.Task) (model.CompletedTask, XPChange) {
	change, early, penalty, at := e.ApplyTaskXP(task.Experience, task.Deadline)
	snap := task.Clone()
	snap.Completed = true
	return model.CompletedTask{
		Task:           snap,
		CompletedAt:    at,
		EarlyBonus:     early,
		OverduePenalty: penalty,
	}, change
}

// Reverse removes a completion's contribution using its stored bonus and
// penalty; nothing is recomputed against the current date.
func (e *ScoringEngine) Reverse(c model.CompletedTask) XPChange {
	return e.apply(-c.TotalXP())
}

// reset restores the total after a failed persist.
func (e *ScoringEngine) reset(totalXP int) {
	e.totalXP = totalXP
}
