package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"taskquest/internal/model"
	"taskquest/internal/storage"
)

type recordingNotifier struct {
	levels []int
	badges []BadgeID
}

func (n *recordingNotifier) LevelUp(_ context.Context, level int) {
	n.levels = append(n.levels, level)
}

func (n *recordingNotifier) BadgesUnlocked(_ context.Context, badges []Badge) {
	for _, b := range badges {
		n.badges = append(n.badges, b.ID)
	}
}

func newTestService(t *testing.T, now time.Time) (*Service, *recordingNotifier, func()) {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	db, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	n := &recordingNotifier{}
	svc, err := NewService(ctx, db,
		WithClock(func() time.Time { return now }),
		WithLocation(time.UTC),
		WithNotifier(n),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	cleanup := func() {
		_ = db.Close()
	}
	return svc, n, cleanup
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func day(y int, m time.Month, d int) *model.Date {
	return &model.Date{Year: y, Month: m, Day: d}
}

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		xp        int
		level     int
		remainder int
	}{
		{0, 1, 0},
		{199, 1, 199},
		{200, 2, 0},
		{599, 2, 399},
		{600, 3, 0},
		{-50, 1, 0},
	}
	for _, tc := range cases {
		level, rem := LevelOf(tc.xp)
		if level != tc.level || rem != tc.remainder {
			t.Fatalf("LevelOf(%d)=(%d,%d), want (%d,%d)", tc.xp, level, rem, tc.level, tc.remainder)
		}
	}
}

func TestLevelCurveSumsToTotal(t *testing.T) {
	for xp := 0; xp <= 20000; xp += 7 {
		level, rem := LevelOf(xp)
		if level < 1 {
			t.Fatalf("LevelOf(%d) level=%d, want >= 1", xp, level)
		}
		sum := 0
		for l := 1; l < level; l++ {
			sum += l * XPPerLevel
		}
		if sum+rem != xp {
			t.Fatalf("LevelOf(%d)=(%d,%d): %d+%d != %d", xp, level, rem, sum, rem, xp)
		}
		if sum != XPRequiredForLevel(level) {
			t.Fatalf("XPRequiredForLevel(%d)=%d, want %d", level, XPRequiredForLevel(level), sum)
		}
		if rem >= XPToClear(level) {
			t.Fatalf("LevelOf(%d) remainder %d not below cost %d", xp, rem, XPToClear(level))
		}
	}
}

func TestCalculateXP(t *testing.T) {
	cases := []struct {
		difficulty, importance int
		urgent                 bool
		want                   int
	}{
		{0, 0, false, 10},
		{0, 0, true, 15},
		{50, 50, false, 60},
		{50, 50, true, 90},
		{33, 0, true, 39},
		{150, -20, false, 60},
	}
	for _, tc := range cases {
		if got := CalculateXP(tc.difficulty, tc.importance, tc.urgent); got != tc.want {
			t.Fatalf("CalculateXP(%d,%d,%v)=%d, want %d", tc.difficulty, tc.importance, tc.urgent, got, tc.want)
		}
	}

	subtasks := []model.Subtask{{Difficulty: 50, Importance: 50}, {Difficulty: 0, Importance: 0}}
	if got := ProjectXP(subtasks); got != 70 {
		t.Fatalf("ProjectXP=%d, want 70", got)
	}
}

func TestEarlyBonusTiers(t *testing.T) {
	deadline := day(2026, time.March, 10)
	cases := []struct {
		completed time.Time
		want      int
	}{
		{time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), 200},
		{time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC), 200},
		{time.Date(2026, 3, 6, 0, 1, 0, 0, time.UTC), 100},
		{time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), 100},
		{time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), 50},
		{time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), 50},
		{time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := EarlyBonus(deadline, tc.completed); got != tc.want {
			t.Fatalf("EarlyBonus(%v)=%d, want %d", tc.completed, got, tc.want)
		}
	}
	if got := EarlyBonus(nil, time.Now()); got != 0 {
		t.Fatalf("EarlyBonus(nil)=%d, want 0", got)
	}
}

func TestOverduePenalty(t *testing.T) {
	deadline := day(2026, time.March, 10)

	threeDays := time.Date(2026, 3, 13, 1, 0, 0, 0, time.UTC)
	if got := OverduePenalty(deadline, threeDays); got != -15 {
		t.Fatalf("OverduePenalty(3 days)=%d, want -15", got)
	}

	// Time of day does not matter, only calendar days.
	lateEvening := time.Date(2026, 3, 13, 23, 59, 0, 0, time.FixedZone("UTC-8", -8*3600))
	if got := OverduePenalty(deadline, lateEvening); got != -15 {
		t.Fatalf("OverduePenalty(3 days, UTC-8)=%d, want -15", got)
	}

	sameDay := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	if got := OverduePenalty(deadline, sameDay); got != 0 {
		t.Fatalf("OverduePenalty(same day)=%d, want 0", got)
	}
	if got := OverduePenalty(nil, threeDays); got != 0 {
		t.Fatalf("OverduePenalty(nil)=%d, want 0", got)
	}
}

func TestAdjustmentsNeverBothNonZero(t *testing.T) {
	deadline := day(2026, time.March, 10)
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	for offset := -10; offset <= 10; offset++ {
		b := NewBonusCalculator(fixedClock(base.AddDate(0, 0, offset)))
		early, penalty, _ := b.Adjustments(deadline)
		if early != 0 && penalty != 0 {
			t.Fatalf("offset %d: early=%d penalty=%d both non-zero", offset, early, penalty)
		}
		if early < 0 || penalty > 0 {
			t.Fatalf("offset %d: early=%d penalty=%d have wrong signs", offset, early, penalty)
		}
	}
}

func TestStreak(t *testing.T) {
	today := time.Date(2026, 6, 10, 18, 0, 0, 0, time.UTC)
	at := func(daysAgo int) time.Time { return today.AddDate(0, 0, -daysAgo).Add(-2 * time.Hour) }

	got := ComputeStreak([]time.Time{at(0), at(1), at(2)}, today)
	if got.Current != 3 {
		t.Fatalf("{D,D-1,D-2}: current=%d, want 3", got.Current)
	}

	got = ComputeStreak([]time.Time{at(5), at(4), at(3), at(2)}, today)
	if got.Current != 0 || got.Longest != 4 {
		t.Fatalf("{D-5..D-2}: got %+v, want current 0 longest 4", got)
	}

	// Last completion yesterday: the run is kept until today ends.
	got = ComputeStreak([]time.Time{at(1), at(2)}, today)
	if got.Current != 2 {
		t.Fatalf("{D-1,D-2}: current=%d, want 2", got.Current)
	}

	got = ComputeStreak([]time.Time{at(0), at(0), {}, at(3), at(4)}, today)
	if got.Current != 1 || got.Longest != 2 {
		t.Fatalf("mixed: got %+v, want current 1 longest 2", got)
	}

	if got := ComputeStreak(nil, today); got != (Streak{}) {
		t.Fatalf("empty: got %+v, want zero", got)
	}
}

func completedAt(at time.Time, deadline *model.Date) model.CompletedTask {
	return model.CompletedTask{
		Task:        model.Task{ID: at.String(), Name: "t", Deadline: deadline, Completed: true},
		CompletedAt: at,
	}
}

func TestBadgeEvaluatorPatterns(t *testing.T) {
	ev := NewBadgeEvaluator(time.UTC)

	var history []model.CompletedTask
	deadline := day(2026, time.March, 10)
	for i := 0; i < 3; i++ {
		// Tuesday 23:30, half an hour before the deadline day ends.
		history = append(history, completedAt(time.Date(2026, 3, 10, 23, 30, i, 0, time.UTC), deadline))
	}
	got := ev.Evaluate(1, 0, len(history), history)
	if !got.Has("clutch") {
		t.Fatalf("expected clutch, got %v", got.IDs())
	}
	if got.Has("night_owl") || got.Has("early_bird") || got.Has("marathon") {
		t.Fatalf("unexpected pattern badges: %v", got.IDs())
	}

	// Three more at night on the same day: six in one day, all at night.
	for i := 0; i < 3; i++ {
		history = append(history, completedAt(time.Date(2026, 3, 10, 2, 0, i, 0, time.UTC), nil))
	}
	got = ev.Evaluate(1, 0, len(history), history)
	if !got.Has("marathon") || !got.Has("night_owl") {
		t.Fatalf("expected marathon and night_owl, got %v", got.IDs())
	}

	var early []model.CompletedTask
	for i := 0; i < 5; i++ {
		// Saturday, one day before a Sunday deadline.
		early = append(early, completedAt(time.Date(2026, 3, 14, 12, i, 0, 0, time.UTC), day(2026, time.March, 15)))
	}
	got = ev.Evaluate(1, 0, len(early), early)
	if !got.Has("early_bird") {
		t.Fatalf("expected early_bird, got %v", got.IDs())
	}
	if got.Has("weekend_warrior") {
		t.Fatalf("weekend_warrior needs 10 weekend completions")
	}

	// Completing on the deadline day itself is on time, not early.
	var onTime []model.CompletedTask
	for i := 0; i < 5; i++ {
		onTime = append(onTime, completedAt(time.Date(2026, 3, 15, 9, i, 0, 0, time.UTC), day(2026, time.March, 15)))
	}
	if got := ev.Evaluate(1, 0, len(onTime), onTime); got.Has("early_bird") {
		t.Fatalf("deadline-day completions must not count as early")
	}

	// Zero timestamps contribute nothing.
	blank := []model.CompletedTask{completedAt(time.Time{}, deadline)}
	got = ev.Evaluate(1, 0, 0, blank)
	if len(got) != 0 {
		t.Fatalf("blank history unlocked %v", got.IDs())
	}
}

func TestBadgeEvaluatorIdempotentAndMonotonic(t *testing.T) {
	ev := NewBadgeEvaluator(time.UTC)
	history := []model.CompletedTask{completedAt(time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), nil)}

	a := ev.Evaluate(5, 3, 10, history)
	b := ev.Evaluate(5, 3, 10, history)
	if len(a) != len(b) {
		t.Fatalf("evaluate not idempotent: %v vs %v", a.IDs(), b.IDs())
	}
	for id := range a {
		if !b.Has(id) {
			t.Fatalf("evaluate not idempotent: %s missing on second call", id)
		}
	}
	for _, want := range []BadgeID{"level_5", "streak_3", "first_task", "tasks_10"} {
		if !a.Has(want) {
			t.Fatalf("expected %s in %v", want, a.IDs())
		}
	}

	bigger := ev.Evaluate(10, 7, 50, append(history, history...))
	for id := range a {
		if !bigger.Has(id) {
			t.Fatalf("larger inputs dropped %s", id)
		}
	}
	newly := NewlyUnlocked(a, bigger)
	if len(newly) != 3 {
		t.Fatalf("NewlyUnlocked=%v, want level_10 streak_7 tasks_50", newly)
	}
	if newly[0].ID != "level_10" || newly[1].ID != "streak_7" || newly[2].ID != "tasks_50" {
		t.Fatalf("NewlyUnlocked order=%v, want catalog order", newly)
	}
}

func TestScoringEngineLevelUpAndRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	e := NewScoringEngine(100, fixedClock(now))

	task := model.Task{ID: "t1", Experience: 60, Deadline: day(2026, time.March, 10)}
	completion, change := e.Complete(task)
	if completion.EarlyBonus != 200 || completion.OverduePenalty != 0 {
		t.Fatalf("adjustments=(%d,%d), want (200,0)", completion.EarlyBonus, completion.OverduePenalty)
	}
	if !completion.Completed || !completion.CompletedAt.Equal(now) {
		t.Fatalf("snapshot=%+v, want completed at %v", completion, now)
	}
	if change.TotalAfter != 360 || !change.LevelUp || change.LevelAfter != 2 {
		t.Fatalf("change=%+v, want total 360 level-up to 2", change)
	}
	if task.Completed {
		t.Fatalf("Complete mutated its input")
	}

	// Reversal uses the stored bonus even though the clock has moved past the deadline.
	e.bonus = NewBonusCalculator(fixedClock(now.AddDate(0, 1, 0)))
	back := e.Reverse(completion)
	if back.TotalAfter != 100 || back.LevelUp {
		t.Fatalf("reverse=%+v, want total 100 without level-up", back)
	}
	if e.TotalExperience() != 100 {
		t.Fatalf("TotalExperience=%d, want 100", e.TotalExperience())
	}
}

func TestScoringEngineClampsAtZero(t *testing.T) {
	now := time.Date(2026, 4, 9, 12, 0, 0, 0, time.UTC)
	e := NewScoringEngine(0, fixedClock(now))

	completion, change := e.Complete(model.Task{ID: "late", Experience: 20, Deadline: day(2026, time.March, 10)})
	if completion.OverduePenalty != -150 || completion.EarlyBonus != 0 {
		t.Fatalf("adjustments=(%d,%d), want (0,-150)", completion.EarlyBonus, completion.OverduePenalty)
	}
	if change.TotalAfter != 0 || change.Delta != -130 || change.LevelUp {
		t.Fatalf("change=%+v, want clamped at 0", change)
	}
}

func TestServiceCompleteAndRemove(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	svc, notes, cleanup := newTestService(t, now)
	defer cleanup()
	ctx := context.Background()

	first, err := svc.AddTask(ctx, TaskInput{Name: "Write report", Difficulty: 50, Importance: 50})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if first.Experience != 60 {
		t.Fatalf("Experience=%d, want 60", first.Experience)
	}

	res, err := svc.CompleteTask(ctx, first.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if res.TotalXP != 60 || res.LeveledUp || res.EarlyBonus != 0 {
		t.Fatalf("first result=%+v", res)
	}
	if len(res.NewBadges) != 1 || res.NewBadges[0].ID != "first_task" {
		t.Fatalf("NewBadges=%v, want first_task", res.NewBadges)
	}

	if _, err := svc.CompleteTask(ctx, first.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second CompleteTask err=%v, want ErrAlreadyCompleted", err)
	}

	big, err := svc.AddTask(ctx, TaskInput{
		Name:       "Ship release",
		Difficulty: 100,
		Importance: 100,
		Urgent:     true,
		Deadline:   day(2026, time.March, 10),
	})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	res, err = svc.CompleteTask(ctx, big.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if res.XPAwarded != 365 || res.TotalXP != 425 || !res.LeveledUp || res.NewLevel != 2 {
		t.Fatalf("big result=%+v, want +365 to 425 and level 2", res)
	}
	if len(notes.levels) != 1 || notes.levels[0] != 2 {
		t.Fatalf("level notices=%v, want [2]", notes.levels)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Level != 2 || stats.LevelXP != 225 || stats.LevelCost != 400 || stats.CompletedCount != 2 || stats.Streak.Current != 1 {
		t.Fatalf("stats=%+v", stats)
	}

	change, err := svc.RemoveTask(ctx, big.ID, true)
	if err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if change.TotalAfter != 60 || change.LevelUp {
		t.Fatalf("remove change=%+v, want total 60", change)
	}
	if _, err := svc.GetTask(ctx, big.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("GetTask after remove err=%v, want ErrTaskNotFound", err)
	}

	// Badges stay unlocked after the history shrinks.
	if !svc.Unlocked().Has("first_task") {
		t.Fatalf("first_task lost after removal")
	}

	// A fresh service over the same database resumes the stored session.
	again, err := NewService(ctx, svc.db, WithClock(fixedClock(now)), WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	stats, err = again.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalXP != 60 || len(stats.Badges) != 1 {
		t.Fatalf("reloaded stats=%+v, want 60 XP and one badge", stats)
	}
	newly, err := again.EvaluateBadges(ctx)
	if err != nil {
		t.Fatalf("EvaluateBadges: %v", err)
	}
	if len(newly) != 0 {
		t.Fatalf("EvaluateBadges=%v, want nothing new", newly)
	}
}

func TestServiceAdjustmentsUseConfiguredZone(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// 20:00 UTC on the 10th is already the 11th in Tokyo.
	tokyo := time.FixedZone("JST", 9*3600)
	now := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)
	svc, err := NewService(ctx, db, WithClock(fixedClock(now)), WithLocation(tokyo))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	deadline := day(2024, time.January, 10)
	if !IsOverdue(deadline, svc.Now()) {
		t.Fatalf("deadline should be overdue at %v", svc.Now())
	}
	task, err := svc.AddTask(ctx, TaskInput{Name: "File taxes", Difficulty: 50, Importance: 50, Deadline: deadline})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	res, err := svc.CompleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if res.EarlyBonus != 0 || res.OverduePenalty != -5 || res.XPAwarded != 55 {
		t.Fatalf("result=%+v, want penalty -5 and +55 XP", res)
	}
}

func TestServiceRemoveOpenTask(t *testing.T) {
	svc, _, cleanup := newTestService(t, time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC))
	defer cleanup()
	ctx := context.Background()

	task, err := svc.AddTask(ctx, TaskInput{Name: "Nap"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	change, err := svc.RemoveTask(ctx, task.ID, false)
	if err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if change.Delta != 0 || change.TotalAfter != 0 {
		t.Fatalf("change=%+v, want no XP change", change)
	}
	if _, err := svc.RemoveTask(ctx, "missing", false); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("RemoveTask(missing) err=%v, want ErrTaskNotFound", err)
	}
}

func TestServiceValidation(t *testing.T) {
	svc, _, cleanup := newTestService(t, time.Now())
	defer cleanup()
	ctx := context.Background()

	var verr ValidationError
	if _, err := svc.AddTask(ctx, TaskInput{Name: "  "}); !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("blank name err=%v, want name ValidationError", err)
	}
	if _, err := svc.AddTask(ctx, TaskInput{Name: "x", Difficulty: 101}); !errors.As(err, &verr) || verr.Field != "difficulty" {
		t.Fatalf("difficulty err=%v, want difficulty ValidationError", err)
	}
	if _, err := svc.AddProject(ctx, ProjectInput{TaskInput: TaskInput{Name: "p"}, Subtasks: []model.Subtask{{Name: ""}}}); !errors.As(err, &verr) {
		t.Fatalf("subtask err=%v, want ValidationError", err)
	}
}

func TestServiceProjectUpdateRecomputesXP(t *testing.T) {
	svc, _, cleanup := newTestService(t, time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC))
	defer cleanup()
	ctx := context.Background()

	p, err := svc.AddProject(ctx, ProjectInput{
		TaskInput: TaskInput{Name: "Move house"},
		Subtasks:  []model.Subtask{{Name: "pack", Difficulty: 40, Importance: 40}},
	})
	if err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	if p.Experience != 50 || !p.IsProject {
		t.Fatalf("project=%+v, want 50 XP", p)
	}

	updated, err := svc.UpdateTask(ctx, p.ID, TaskUpdate{Subtasks: append(p.Subtasks, model.Subtask{Name: "drive", Difficulty: 20, Importance: 0})})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Experience != 70 {
		t.Fatalf("Experience=%d, want 70", updated.Experience)
	}

	task, err := svc.AddTask(ctx, TaskInput{Name: "plain", Difficulty: 10, Importance: 10})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	hard := 90
	updatedTask, err := svc.UpdateTask(ctx, task.ID, TaskUpdate{Difficulty: &hard})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updatedTask.Experience != task.Experience || updatedTask.Difficulty != 90 {
		t.Fatalf("task=%+v, want frozen XP %d", updatedTask, task.Experience)
	}
}

func TestUpdateProjectDoesNotReinsert(t *testing.T) {
	svc, _, cleanup := newTestService(t, time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC))
	defer cleanup()
	ctx := context.Background()

	p, err := svc.AddProject(ctx, ProjectInput{
		TaskInput: TaskInput{Name: "Garden"},
		Subtasks:  []model.Subtask{{Name: "dig", Difficulty: 50, Importance: 50}},
	})
	if err != nil {
		t.Fatalf("AddProject: %v", err)
	}

	renamed := p.Clone()
	renamed.Name = "Vegetable garden"
	if err := svc.UpdateProject(ctx, renamed); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	got, err := svc.LoadProject(ctx, p.ID)
	if err != nil || got.Name != "Vegetable garden" {
		t.Fatalf("LoadProject=%+v, %v", got, err)
	}

	if _, err := svc.RemoveTask(ctx, p.ID, false); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if err := svc.UpdateProject(ctx, renamed); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("UpdateProject after remove err=%v, want ErrNotFound", err)
	}
	if _, err := svc.LoadProject(ctx, p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("project came back after remove: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	src, _, cleanup := newTestService(t, now)
	defer cleanup()
	ctx := context.Background()

	task, err := src.AddTask(ctx, TaskInput{Name: "a", Difficulty: 50, Importance: 50})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := src.CompleteTask(ctx, task.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if _, err := src.AddTask(ctx, TaskInput{Name: "b"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	snap, err := src.ExportSnapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	if snap.TotalXP != 60 || len(snap.Tasks) != 2 || len(snap.Completed) != 1 || len(snap.Badges) != 1 {
		t.Fatalf("snapshot=%+v", snap)
	}

	dst, _, cleanup2 := newTestService(t, now)
	defer cleanup2()
	if err := dst.ImportSnapshot(ctx, snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	stats, err := dst.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalXP != 60 || stats.CompletedCount != 1 || len(stats.Badges) != 1 {
		t.Fatalf("imported stats=%+v", stats)
	}
	open, err := dst.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(open) != 1 || open[0].Name != "b" {
		t.Fatalf("open tasks=%v, want [b]", open)
	}
}

func TestParseRatingAndDeadline(t *testing.T) {
	if v, err := ParseRating("difficulty", "hard", 0); err != nil || v != 75 {
		t.Fatalf("ParseRating(hard)=%d,%v", v, err)
	}
	if v, err := ParseRating("difficulty", "", 50); err != nil || v != 50 {
		t.Fatalf("ParseRating(empty)=%d,%v", v, err)
	}
	if _, err := ParseRating("difficulty", "101", 0); err == nil {
		t.Fatalf("ParseRating(101) should fail")
	}

	now := time.Date(2026, 12, 30, 8, 0, 0, 0, time.UTC)
	d, err := ParseDeadline("+3d", now)
	if err != nil || d.String() != "2027-01-02" {
		t.Fatalf("ParseDeadline(+3d)=%v,%v", d, err)
	}
	d, err = ParseDeadline("2026-05-01", now)
	if err != nil || d.String() != "2026-05-01" {
		t.Fatalf("ParseDeadline(date)=%v,%v", d, err)
	}
	if d, err := ParseDeadline("", now); err != nil || d != nil {
		t.Fatalf("ParseDeadline(empty)=%v,%v", d, err)
	}
	if _, err := ParseDeadline("soon", now); err == nil {
		t.Fatalf("ParseDeadline(soon) should fail")
	}
}
