package root

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskquest/internal/engine"
	"taskquest/internal/model"
	"taskquest/internal/ui"
)

// taskFlags are shared by add and edit.
type taskFlags struct {
	difficulty string
	importance string
	deadline   string
	label      string
	desc       string
	urgent     bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.difficulty, "difficulty", "d", "", "Difficulty 0-100 or trivial|easy|medium|hard|epic")
	cmd.Flags().StringVarP(&f.importance, "importance", "i", "", "Importance 0-100 or low|normal|high|critical")
	cmd.Flags().StringVar(&f.deadline, "due", "", "Deadline: today, tomorrow, +Nd or YYYY-MM-DD")
	cmd.Flags().StringVarP(&f.label, "label", "l", "", "Free-form label")
	cmd.Flags().StringVar(&f.desc, "desc", "", "Description")
	cmd.Flags().BoolVarP(&f.urgent, "urgent", "u", false, "Urgent (x1.5 XP)")
}

func newAddCmd() *cobra.Command {
	var f taskFlags
	var subtasks []string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task, or a project when --subtask is given",
		Example: `  tq add "Write report" -d hard -i high --due tomorrow
  tq add "Garden" --subtask dig --subtask "plant:easy:high"`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("name is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			in, err := f.input(args[0], s.svc)
			if err != nil {
				return err
			}

			var t *model.Task
			if len(subtasks) > 0 {
				parsed, err := parseSubtasks(subtasks)
				if err != nil {
					return err
				}
				t, err = s.svc.AddProject(ctx, engine.ProjectInput{TaskInput: in, Subtasks: parsed})
				if err != nil {
					return err
				}
			} else {
				t, err = s.svc.AddTask(ctx, in)
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s %s\n",
				ui.Good.Render(ui.IconPlus+" Added"),
				ui.KindIcon(t.IsProject, t.IsShared),
				ui.Muted.Render(shortID(t.ID)),
				t.Name,
				ui.Muted.Render(fmt.Sprintf("(%d XP)", t.Experience)),
			)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringArrayVarP(&subtasks, "subtask", "s", nil, `Subtask "name" or "name:difficulty:importance" (repeatable)`)

	return cmd
}

func (f *taskFlags) input(name string, svc *engine.Service) (engine.TaskInput, error) {
	diff, err := engine.ParseRating("difficulty", f.difficulty, 50)
	if err != nil {
		return engine.TaskInput{}, err
	}
	imp, err := engine.ParseRating("importance", f.importance, 50)
	if err != nil {
		return engine.TaskInput{}, err
	}
	due, err := engine.ParseDeadline(f.deadline, svc.Now())
	if err != nil {
		return engine.TaskInput{}, err
	}
	return engine.TaskInput{
		Name:        name,
		Description: f.desc,
		Difficulty:  diff,
		Importance:  imp,
		Deadline:    due,
		Label:       f.label,
		Urgent:      f.urgent,
	}, nil
}

func parseSubtasks(specs []string) ([]model.Subtask, error) {
	out := make([]model.Subtask, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) > 3 {
			return nil, fmt.Errorf("subtask %q: want name[:difficulty[:importance]]", spec)
		}
		st := model.Subtask{Name: strings.TrimSpace(parts[0]), Difficulty: 50, Importance: 50}
		var err error
		if len(parts) > 1 {
			if st.Difficulty, err = engine.ParseRating("difficulty", parts[1], 50); err != nil {
				return nil, err
			}
		}
		if len(parts) > 2 {
			if st.Importance, err = engine.ParseRating("importance", parts[2], 50); err != nil {
				return nil, err
			}
		}
		out = append(out, st)
	}
	return out, nil
}
