package engine

import (
	"sort"
	"time"

	"taskquest/internal/model"
)

// Streak is the consecutive-day completion record.
type Streak struct {
	Current int
	Longest int
}

// ComputeStreak derives current and longest streaks from completion instants.
// Instants are bucketed into calendar days in today's location; zero instants
// are ignored. A streak whose last day is yesterday is still alive (today may
// yet get a completion); any larger gap resets Current to zero.
func ComputeStreak(completions []time.Time, today time.Time) Streak {
	loc := today.Location()
	seen := make(map[model.Date]struct{}, len(completions))
	days := make([]model.Date, 0, len(completions))
	for _, t := range completions {
		if t.IsZero() {
			continue
		}
		d := model.DateOf(t.In(loc))
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	if len(days) == 0 {
		return Streak{}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run, longest := 1, 1
	for i := 1; i < len(days); i++ {
		if model.DaysBetween(days[i-1], days[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	current := run
	if model.DaysBetween(days[len(days)-1], model.DateOf(today)) > 1 {
		current = 0
	}
	return Streak{Current: current, Longest: longest}
}

// StreakFromCompleted is ComputeStreak over a completion history.
func StreakFromCompleted(completed []model.CompletedTask, today time.Time) Streak {
	instants := make([]time.Time, 0, len(completed))
	for _, c := range completed {
		instants = append(instants, c.CompletedAt)
	}
	return ComputeStreak(instants, today)
}
