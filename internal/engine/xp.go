package engine

import (
	"math"

	"taskquest/internal/model"
)

const (
	// XPPerLevel is the per-level cost factor: clearing level L costs L * XPPerLevel.
	XPPerLevel = 200

	// TaskBaseXP is the flat XP every task is worth before ratings are applied.
	TaskBaseXP = 10

	// UrgentMultiplier scales base XP for tasks flagged urgent.
	UrgentMultiplier = 1.5

	MinRating = 0
	MaxRating = 100
)

// XPToClear returns the XP needed to go from the start of level to the next one.
func XPToClear(level int) int {
	if level < 1 {
		level = 1
	}
	return level * XPPerLevel
}

// XPRequiredForLevel returns the total XP threshold at which level begins.
// Level 1 begins at 0 XP.
func XPRequiredForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	// Sum of L*200 for L in 1..level-1.
	return XPPerLevel * level * (level - 1) / 2
}

// LevelOf converts cumulative XP into the current level and the XP earned
// inside that level. Negative input is treated as zero.
func LevelOf(totalXP int) (level int, remainder int) {
	if totalXP < 0 {
		totalXP = 0
	}
	level = 1
	remainder = totalXP
	for remainder >= XPToClear(level) {
		remainder -= XPToClear(level)
		level++
	}
	return level, remainder
}

// LevelForTotalXP is LevelOf without the remainder.
func LevelForTotalXP(totalXP int) int {
	level, _ := LevelOf(totalXP)
	return level
}

func clampRating(v int) int {
	if v < MinRating {
		return MinRating
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}

// CalculateXP computes a task's base XP from its ratings.
// The value is frozen at task creation time.
func CalculateXP(difficulty, importance int, urgent bool) int {
	xp := float64(TaskBaseXP + (clampRating(difficulty)+clampRating(importance))/2)
	if urgent {
		xp *= UrgentMultiplier
	}
	return int(math.Round(xp))
}

// SubtaskXP is the base XP of one project step. Subtasks cannot be urgent.
func SubtaskXP(difficulty, importance int) int {
	return CalculateXP(difficulty, importance, false)
}

// ProjectXP is the aggregate base XP of a project: the sum of its subtasks.
func ProjectXP(subtasks []model.Subtask) int {
	total := 0
	for _, st := range subtasks {
		total += SubtaskXP(st.Difficulty, st.Importance)
	}
	return total
}
