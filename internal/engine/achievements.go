package engine

import (
	"sort"
	"time"

	"taskquest/internal/model"
)

type BadgeID string

// PredicateKind selects the single unlock rule a badge uses.
type PredicateKind int

const (
	PredicateLevel PredicateKind = iota
	PredicateStreak
	PredicateTaskCount
	PredicateEarlyCount
	PredicateNightCount
	PredicateTasksPerDay
	PredicateWeekendCount
	PredicateNearDeadlineCount
)

const (
	nightStartHour = 22
	nightEndHour   = 4

	nearDeadlineWindow = 60 * time.Minute
)

// Badge is a static catalog entry.
type Badge struct {
	ID          BadgeID
	Name        string
	Description string
	Icon        string
	Kind        PredicateKind
	Threshold   int
}

var badgeCatalog = []Badge{
	// Level milestones
	{ID: "level_5", Name: "Rising Star", Description: "Reach level 5", Icon: "🌱", Kind: PredicateLevel, Threshold: 5},
	{ID: "level_10", Name: "Seasoned", Description: "Reach level 10", Icon: "⭐", Kind: PredicateLevel, Threshold: 10},
	{ID: "level_25", Name: "Veteran", Description: "Reach level 25", Icon: "🌟", Kind: PredicateLevel, Threshold: 25},
	{ID: "level_50", Name: "Legend", Description: "Reach level 50", Icon: "💫", Kind: PredicateLevel, Threshold: 50},

	// Streaks
	{ID: "streak_3", Name: "On Fire", Description: "Complete tasks 3 days in a row", Icon: "🔥", Kind: PredicateStreak, Threshold: 3},
	{ID: "streak_7", Name: "Week Warrior", Description: "Complete tasks 7 days in a row", Icon: "📅", Kind: PredicateStreak, Threshold: 7},
	{ID: "streak_30", Name: "Unstoppable", Description: "Complete tasks 30 days in a row", Icon: "🚀", Kind: PredicateStreak, Threshold: 30},

	// Task counts
	{ID: "first_task", Name: "First Quest", Description: "Complete 1 task", Icon: "✓", Kind: PredicateTaskCount, Threshold: 1},
	{ID: "tasks_10", Name: "Productive", Description: "Complete 10 tasks", Icon: "📋", Kind: PredicateTaskCount, Threshold: 10},
	{ID: "tasks_50", Name: "Achiever", Description: "Complete 50 tasks", Icon: "🏅", Kind: PredicateTaskCount, Threshold: 50},
	{ID: "tasks_100", Name: "Powerhouse", Description: "Complete 100 tasks", Icon: "🏆", Kind: PredicateTaskCount, Threshold: 100},

	// Completion patterns
	{ID: "early_bird", Name: "Early Bird", Description: "Finish 5 tasks before their deadline day", Icon: "🐦", Kind: PredicateEarlyCount, Threshold: 5},
	{ID: "night_owl", Name: "Night Owl", Description: "Complete 5 tasks between 22:00 and 04:00", Icon: "🦉", Kind: PredicateNightCount, Threshold: 5},
	{ID: "marathon", Name: "Marathon Day", Description: "Complete more than 5 tasks in a single day", Icon: "⚡", Kind: PredicateTasksPerDay, Threshold: 5},
	{ID: "weekend_warrior", Name: "Weekend Warrior", Description: "Complete 10 tasks on weekends", Icon: "🏖️", Kind: PredicateWeekendCount, Threshold: 10},
	{ID: "clutch", Name: "Clutch", Description: "Complete 3 tasks within an hour of their deadline", Icon: "⏱️", Kind: PredicateNearDeadlineCount, Threshold: 3},
}

// Catalog returns a copy of the badge catalog in display order.
func Catalog() []Badge {
	return append([]Badge(nil), badgeCatalog...)
}

// LookupBadge finds a catalog entry by ID.
func LookupBadge(id BadgeID) (Badge, bool) {
	for _, b := range badgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// BadgeSet is an unordered set of badge IDs.
type BadgeSet map[BadgeID]struct{}

func NewBadgeSet(ids ...BadgeID) BadgeSet {
	s := make(BadgeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s BadgeSet) Has(id BadgeID) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set holding the members of both sets.
func (s BadgeSet) Union(other BadgeSet) BadgeSet {
	out := make(BadgeSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members in catalog order; unknown IDs sort last by name.
func (s BadgeSet) IDs() []BadgeID {
	order := make(map[BadgeID]int, len(badgeCatalog))
	for i, b := range badgeCatalog {
		order[b.ID] = i
	}
	out := make([]BadgeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := order[out[i]]
		oj, jok := order[out[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// NewlyUnlocked returns the badges present in next but not in prev, in catalog order.
func NewlyUnlocked(prev, next BadgeSet) []Badge {
	var out []Badge
	for _, id := range next.IDs() {
		if prev.Has(id) {
			continue
		}
		if b, ok := LookupBadge(id); ok {
			out = append(out, b)
		}
	}
	return out
}

// BadgeEvaluator checks the catalog against a player's stats and history.
type BadgeEvaluator struct {
	catalog []Badge
	loc     *time.Location
}

// NewBadgeEvaluator builds an evaluator that reads completion times in loc.
func NewBadgeEvaluator(loc *time.Location) *BadgeEvaluator {
	if loc == nil {
		loc = time.Local
	}
	return &BadgeEvaluator{catalog: Catalog(), loc: loc}
}

// Evaluate recomputes the full set of badges whose predicate holds.
// The result is not a delta; diff it against the known set with NewlyUnlocked.
func (e *BadgeEvaluator) Evaluate(level, streak, completedCount int, completed []model.CompletedTask) BadgeSet {
	stats := e.scan(completed)
	out := BadgeSet{}
	for _, b := range e.catalog {
		var earned bool
		switch b.Kind {
		case PredicateLevel:
			earned = level >= b.Threshold
		case PredicateStreak:
			earned = streak >= b.Threshold
		case PredicateTaskCount:
			earned = completedCount >= b.Threshold
		case PredicateEarlyCount:
			earned = stats.early >= b.Threshold
		case PredicateNightCount:
			earned = stats.night >= b.Threshold
		case PredicateTasksPerDay:
			earned = stats.maxPerDay > b.Threshold
		case PredicateWeekendCount:
			earned = stats.weekend >= b.Threshold
		case PredicateNearDeadlineCount:
			earned = stats.nearDeadline >= b.Threshold
		}
		if earned {
			out[b.ID] = struct{}{}
		}
	}
	return out
}

// Achievement pairs a catalog badge with its unlock state, for display.
type Achievement struct {
	Badge
	Earned bool
}

// Achievements lists the whole catalog marked against unlocked.
func Achievements(unlocked BadgeSet) []Achievement {
	out := make([]Achievement, 0, len(badgeCatalog))
	for _, b := range badgeCatalog {
		out = append(out, Achievement{Badge: b, Earned: unlocked.Has(b.ID)})
	}
	return out
}

type historyStats struct {
	early        int
	night        int
	weekend      int
	nearDeadline int
	maxPerDay    int
}

func (e *BadgeEvaluator) scan(completed []model.CompletedTask) historyStats {
	var st historyStats
	perDay := map[model.Date]int{}
	for _, c := range completed {
		if c.CompletedAt.IsZero() {
			continue
		}
		at := c.CompletedAt.In(e.loc)
		day := model.DateOf(at)

		perDay[day]++
		if perDay[day] > st.maxPerDay {
			st.maxPerDay = perDay[day]
		}

		if h := at.Hour(); h >= nightStartHour || h < nightEndHour {
			st.night++
		}
		if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
			st.weekend++
		}

		if c.Deadline == nil || c.Deadline.IsZero() {
			continue
		}
		if day.Before(*c.Deadline) {
			st.early++
		}
		due := c.Deadline.EndOfDay(e.loc)
		if left := due.Sub(at); left >= 0 && left <= nearDeadlineWindow {
			st.nearDeadline++
		}
	}
	return st
}
