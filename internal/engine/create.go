package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"taskquest/internal/model"
)

type TaskInput struct {
	Name        string
	Description string
	Difficulty  int
	Importance  int
	Deadline    *model.Date
	Label       string
	Urgent      bool
}

type ProjectInput struct {
	TaskInput
	Subtasks []model.Subtask
}

func validateRatings(difficulty, importance int) error {
	if difficulty < MinRating || difficulty > MaxRating {
		return ValidationError{Field: "difficulty", Reason: fmt.Sprintf("%d is outside %d-%d", difficulty, MinRating, MaxRating)}
	}
	if importance < MinRating || importance > MaxRating {
		return ValidationError{Field: "importance", Reason: fmt.Sprintf("%d is outside %d-%d", importance, MinRating, MaxRating)}
	}
	return nil
}

func validateSubtasks(subtasks []model.Subtask) ([]model.Subtask, error) {
	out := make([]model.Subtask, 0, len(subtasks))
	for i, st := range subtasks {
		name, err := normalizeName(st.Name)
		if err != nil {
			return nil, ValidationError{Field: fmt.Sprintf("subtask %d", i+1), Reason: "name is required"}
		}
		if err := validateRatings(st.Difficulty, st.Importance); err != nil {
			return nil, err
		}
		st.Name = name
		out = append(out, st)
	}
	return out, nil
}

func (s *Service) newTask(in TaskInput) (model.Task, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return model.Task{}, err
	}
	if err := validateRatings(in.Difficulty, in.Importance); err != nil {
		return model.Task{}, err
	}
	return model.Task{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		Difficulty:  in.Difficulty,
		Importance:  in.Importance,
		Deadline:    in.Deadline,
		Label:       in.Label,
		Urgent:      in.Urgent,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// AddTask stores a new task. Its base XP is computed once here and never changes.
func (s *Service) AddTask(ctx context.Context, in TaskInput) (*model.Task, error) {
	t, err := s.newTask(in)
	if err != nil {
		return nil, err
	}
	t.Experience = CalculateXP(t.Difficulty, t.Importance, t.Urgent)

	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AddProject stores a new, not yet shared, project.
func (s *Service) AddProject(ctx context.Context, in ProjectInput) (*model.Project, error) {
	p, err := s.newTask(in.TaskInput)
	if err != nil {
		return nil, err
	}
	subtasks, err := validateSubtasks(in.Subtasks)
	if err != nil {
		return nil, err
	}
	p.IsProject = true
	p.Subtasks = subtasks
	p.Experience = ProjectXP(subtasks)

	if err := s.tasks.Insert(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (*model.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	return t, nil
}

// ListTasks returns open tasks and projects, oldest first.
func (s *Service) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.tasks.ListOpen(ctx)
}

// ListCompleted returns the completion history, oldest first.
func (s *Service) ListCompleted(ctx context.Context) ([]model.CompletedTask, error) {
	return s.completions.ListAll(ctx)
}
