package engine

import (
	"time"

	"taskquest/internal/model"
)

const (
	// OverduePenaltyPerDay is deducted for each full calendar day past the deadline.
	OverduePenaltyPerDay = 5

	earlyBonusEpic   = 200
	earlyBonusGreat  = 100
	earlyBonusOnTime = 50
)

// BonusCalculator turns a deadline and a completion instant into XP adjustments.
type BonusCalculator struct {
	now func() time.Time
}

func NewBonusCalculator(now func() time.Time) BonusCalculator {
	if now == nil {
		now = time.Now
	}
	return BonusCalculator{now: now}
}

// Now returns the calculator's notion of the current instant.
func (b BonusCalculator) Now() time.Time {
	return b.now()
}

// EarlyBonus returns the tiered bonus for finishing on or before the deadline day.
// Time of day is ignored: only the calendar days of the two endpoints count.
func EarlyBonus(deadline *model.Date, completedAt time.Time) int {
	if deadline == nil || deadline.IsZero() {
		return 0
	}
	daysEarly := model.DaysBetween(model.DateOf(completedAt), *deadline)
	switch {
	case daysEarly >= 5:
		return earlyBonusEpic
	case daysEarly >= 2:
		return earlyBonusGreat
	case daysEarly >= 0:
		return earlyBonusOnTime
	default:
		return 0
	}
}

// OverduePenalty returns -5 per full calendar day now is past the deadline,
// or 0 when the deadline has not passed.
func OverduePenalty(deadline *model.Date, now time.Time) int {
	if deadline == nil || deadline.IsZero() {
		return 0
	}
	daysOverdue := model.DaysBetween(*deadline, model.DateOf(now))
	if daysOverdue <= 0 {
		return 0
	}
	return -OverduePenaltyPerDay * daysOverdue
}

// IsOverdue reports whether the deadline day lies strictly before now's day.
func IsOverdue(deadline *model.Date, now time.Time) bool {
	if deadline == nil || deadline.IsZero() {
		return false
	}
	return deadline.Before(model.DateOf(now))
}

// Adjustments computes the bonus/penalty pair for a completion happening now.
// Exactly one side is evaluated, so at most one of the two is non-zero.
func (b BonusCalculator) Adjustments(deadline *model.Date) (earlyBonus int, overduePenalty int, at time.Time) {
	at = b.now()
	if IsOverdue(deadline, at) {
		return 0, OverduePenalty(deadline, at), at
	}
	return EarlyBonus(deadline, at), 0, at
}
