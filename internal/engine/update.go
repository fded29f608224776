package engine

import (
	"context"
	"fmt"

	"taskquest/internal/model"
)

// TaskUpdate lists the fields to change; nil fields are left alone.
// Rating changes do not touch a task's frozen XP. A project's XP follows its
// subtasks, so replacing Subtasks recomputes it.
type TaskUpdate struct {
	Name          *string
	Description   *string
	Difficulty    *int
	Importance    *int
	Deadline      *model.Date
	ClearDeadline bool
	Label         *string
	Urgent        *bool
	Subtasks      []model.Subtask
}

func (s *Service) UpdateTask(ctx context.Context, id string, u TaskUpdate) (*model.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Completed {
		return nil, fmt.Errorf("task %s: %w", id, ErrAlreadyCompleted)
	}

	if u.Name != nil {
		name, err := normalizeName(*u.Name)
		if err != nil {
			return nil, err
		}
		t.Name = name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Difficulty != nil {
		t.Difficulty = *u.Difficulty
	}
	if u.Importance != nil {
		t.Importance = *u.Importance
	}
	if err := validateRatings(t.Difficulty, t.Importance); err != nil {
		return nil, err
	}
	switch {
	case u.ClearDeadline:
		t.Deadline = nil
	case u.Deadline != nil:
		d := *u.Deadline
		t.Deadline = &d
	}
	if u.Label != nil {
		t.Label = *u.Label
	}
	if u.Urgent != nil {
		t.Urgent = *u.Urgent
	}
	if u.Subtasks != nil {
		if !t.IsProject {
			return nil, ValidationError{Field: "subtasks", Reason: "only projects have subtasks"}
		}
		subtasks, err := validateSubtasks(u.Subtasks)
		if err != nil {
			return nil, err
		}
		t.Subtasks = subtasks
		t.Experience = ProjectXP(subtasks)
	}

	if err := s.tasks.Update(ctx, *t); err != nil {
		return nil, err
	}
	return t, nil
}

// SaveProject persists a project snapshot, inserting it if it is new.
// The sync layer calls this when a project is shared or joined.
// A project this user already completed stays completed.
func (s *Service) SaveProject(ctx context.Context, p model.Project) error {
	p.IsProject = true
	existing, err := s.tasks.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Completed {
		p.Completed = true
	}
	return s.tasks.Upsert(ctx, p)
}

// UpdateProject overwrites the local copy of a project that is still present.
// It never inserts: a removed project yields model.ErrNotFound.
func (s *Service) UpdateProject(ctx context.Context, p model.Project) error {
	p.IsProject = true
	existing, err := s.tasks.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("project %s: %w", p.ID, model.ErrNotFound)
	}
	if existing.Completed {
		p.Completed = true
	}
	return s.tasks.Update(ctx, p)
}

// LoadProject returns the local copy of a project, or model.ErrNotFound.
func (s *Service) LoadProject(ctx context.Context, id string) (*model.Project, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("project %s: %w", id, model.ErrNotFound)
	}
	return t, nil
}

// SharedProjects lists local projects that are shared, for starting poll loops.
func (s *Service) SharedProjects(ctx context.Context) ([]model.Project, error) {
	return s.tasks.ListShared(ctx)
}
