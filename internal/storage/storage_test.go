package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"taskquest/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestPlayerGetOrCreateMain(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPlayerRepo(db)

	p, err := repo.GetOrCreateMain(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateMain: %v", err)
	}
	if p.Level != 1 || p.XPTotal != 0 {
		t.Fatalf("new player = %+v, want level 1 xp 0", p)
	}

	p.XPTotal = 450
	p.Level = 3
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, err := repo.GetOrCreateMain(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateMain: %v", err)
	}
	if again.XPTotal != 450 || again.Level != 3 {
		t.Fatalf("player = %+v, want xp 450 level 3", again)
	}
}

func TestTaskRepoRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepo(db)

	deadline := model.Date{Year: 2026, Month: time.March, Day: 14}
	proj := model.Task{
		ID:         "p1",
		Name:       "Launch",
		Difficulty: 40,
		Importance: 60,
		Deadline:   &deadline,
		Label:      "work",
		Experience: 80,
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		IsProject:  true,
		Subtasks: []model.Subtask{
			{Name: "draft", Difficulty: 20, Importance: 20},
			{Name: "ship", Difficulty: 60, Importance: 80, Completed: true},
		},
	}
	proj.MarkShared("alice")
	proj.AddMember("bob")

	if err := repo.Insert(ctx, proj); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatalf("Get returned nil")
	}
	if !model.ProjectsEqual(*got, proj) {
		t.Fatalf("round trip mismatch:\n%s", model.ProjectDiff(proj, *got))
	}

	shared, err := repo.ListShared(ctx)
	if err != nil {
		t.Fatalf("ListShared: %v", err)
	}
	if len(shared) != 1 {
		t.Fatalf("ListShared len=%d, want 1", len(shared))
	}
}

func TestTaskRepoUpdateMissing(t *testing.T) {
	db := openTestDB(t)
	err := NewTaskRepo(db).Update(context.Background(), model.Task{ID: "nope", Name: "x"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update missing err=%v, want ErrNotFound", err)
	}
}

func TestTaskRepoToleratesMissingCreatedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepo(db)

	if err := repo.Insert(ctx, model.Task{ID: "t1", Name: "remote", Experience: 10}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := repo.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt=%v, want zero", got.CreatedAt)
	}
	if got.Deadline != nil {
		t.Fatalf("Deadline=%v, want nil", got.Deadline)
	}
}

func TestCompletionRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCompletionRepo(db)

	base := time.Date(2026, 5, 2, 23, 30, 0, 0, time.UTC)
	entries := []model.CompletedTask{
		{Task: model.Task{ID: "a", Name: "A", Experience: 20, Completed: true}, CompletionID: "c1", CompletedAt: base, EarlyBonus: 100},
		{Task: model.Task{ID: "b", Name: "B", Experience: 30, Completed: true}, CompletionID: "c2", CompletedAt: base.Add(time.Hour), OverduePenalty: -10},
		{Task: model.Task{ID: "c", Name: "C", Experience: 5, Completed: true}, CompletionID: "c3"},
	}
	for _, c := range entries {
		if err := repo.Insert(ctx, c); err != nil {
			t.Fatalf("Insert %s: %v", c.CompletionID, err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll len=%d, want 3", len(all))
	}
	// The row without a timestamp sorts first (NULL) and stays zero.
	if all[0].CompletionID != "c3" || !all[0].CompletedAt.IsZero() {
		t.Fatalf("first entry = %s at %v, want c3 at zero", all[0].CompletionID, all[0].CompletedAt)
	}
	if all[1].EarlyBonus != 100 || all[2].OverduePenalty != -10 {
		t.Fatalf("adjustments not preserved: %+v %+v", all[1], all[2])
	}
	if !all[1].CompletedAt.Equal(base) {
		t.Fatalf("CompletedAt=%v, want %v", all[1].CompletedAt, base)
	}

	last, err := repo.LastForTask(ctx, "b")
	if err != nil {
		t.Fatalf("LastForTask: %v", err)
	}
	if last == nil || last.CompletionID != "c2" || last.TotalXP() != 20 {
		t.Fatalf("LastForTask = %+v, want c2 with total 20", last)
	}
	if missing, err := repo.LastForTask(ctx, "zzz"); err != nil || missing != nil {
		t.Fatalf("LastForTask(zzz) = %v, %v; want nil, nil", missing, err)
	}

	if err := repo.Delete(ctx, "c2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count=%d, want 2", n)
	}
}

func TestBadgeRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewBadgeRepo(db)

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Unlock(ctx, first, "first_task", "level_5"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := repo.Unlock(ctx, first.Add(24*time.Hour), "first_task"); err != nil {
		t.Fatalf("Unlock again: %v", err)
	}

	got, err := repo.ListUnlocked(ctx)
	if err != nil {
		t.Fatalf("ListUnlocked: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListUnlocked len=%d, want 2", len(got))
	}
	for _, b := range got {
		if !b.UnlockedAt.Equal(first) {
			t.Fatalf("badge %s unlocked at %v, want %v", b.ID, b.UnlockedAt, first)
		}
	}

	notified, err := repo.IsNotified(ctx, "first_task")
	if err != nil || notified {
		t.Fatalf("IsNotified = %v, %v; want false", notified, err)
	}
	if err := repo.MarkNotified(ctx, "first_task"); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	notified, err = repo.IsNotified(ctx, "first_task")
	if err != nil || !notified {
		t.Fatalf("IsNotified after mark = %v, %v; want true", notified, err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx DBTX) error {
		if err := NewTaskRepo(tx).Insert(ctx, model.Task{ID: "t1", Name: "x", Experience: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err=%v, want boom", err)
	}
	got, err := NewTaskRepo(db).Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("task persisted after rollback")
	}
}

func TestSharedProjectRepoSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenServer(ctx, DriverSQLite, filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("OpenServer: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewSharedProjectRepo(db)

	if _, err := repo.Get(ctx, "p1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get missing err=%v, want ErrNotFound", err)
	}
	if _, err := repo.AddMember(ctx, "p1", "bob"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("AddMember missing err=%v, want ErrNotFound", err)
	}

	details := model.ProjectDetails{
		Name:       "Garden",
		Experience: 40,
		Subtasks:   []model.Subtask{{Name: "dig"}, {Name: "plant"}},
		IsShared:   true,
		OwnerID:    "alice",
	}
	p, err := repo.UpsertDetails(ctx, "p1", details)
	if err != nil {
		t.Fatalf("UpsertDetails: %v", err)
	}
	if !p.HasMember("alice") || !p.IsProject {
		t.Fatalf("upserted project = %+v, want owner member and IsProject", p)
	}

	if _, err := repo.AddMember(ctx, "p1", "bob"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := repo.AddMember(ctx, "p1", "bob"); err != nil {
		t.Fatalf("AddMember twice: %v", err)
	}
	if _, err := repo.SetSubtask(ctx, "p1", 1, true); err != nil {
		t.Fatalf("SetSubtask: %v", err)
	}
	if _, err := repo.SetSubtask(ctx, "p1", 2, true); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("SetSubtask(2) err=%v, want ErrIndexOutOfRange", err)
	}

	got, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.SharedWith) != 2 {
		t.Fatalf("SharedWith=%v, want alice and bob", got.SharedWith)
	}
	if got.OwnerID != "alice" {
		t.Fatalf("OwnerID=%q, want alice", got.OwnerID)
	}
	if got.Subtasks[0].Completed || !got.Subtasks[1].Completed {
		t.Fatalf("subtasks=%+v, want only index 1 completed", got.Subtasks)
	}

	private := model.ProjectDetails{
		Name:       "Diary",
		IsShared:   false,
		SharedWith: []string{"alice", "bob"},
	}
	p, err = repo.UpsertDetails(ctx, "p2", private)
	if err != nil {
		t.Fatalf("UpsertDetails private: %v", err)
	}
	if len(p.SharedWith) != 0 {
		t.Fatalf("private project SharedWith=%v, want none", p.SharedWith)
	}
	got, err = repo.Get(ctx, "p2")
	if err != nil {
		t.Fatalf("Get p2: %v", err)
	}
	if got.IsShared || len(got.SharedWith) != 0 {
		t.Fatalf("stored private project=%+v, want no members", got)
	}
}
