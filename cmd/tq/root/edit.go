package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskquest/internal/engine"
	"taskquest/internal/ui"
)

func newEditCmd() *cobra.Command {
	var f taskFlags
	var name string
	var clearDue bool
	var subtasks []string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an open task (XP stays as it was when added)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("id is required")
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

			id, err := resolveTaskID(ctx, s.svc, args[0])
			if err != nil {
				return err
			}

			var u engine.TaskUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("desc") {
				u.Description = &f.desc
			}
			if flags.Changed("label") {
				u.Label = &f.label
			}
			if flags.Changed("urgent") {
				u.Urgent = &f.urgent
			}
			if flags.Changed("difficulty") {
				v, err := engine.ParseRating("difficulty", f.difficulty, 0)
				if err != nil {
					return err
				}
				u.Difficulty = &v
			}
			if flags.Changed("importance") {
				v, err := engine.ParseRating("importance", f.importance, 0)
				if err != nil {
					return err
				}
				u.Importance = &v
			}
			if flags.Changed("due") {
				due, err := engine.ParseDeadline(f.deadline, s.svc.Now())
				if err != nil {
					return err
				}
				u.Deadline = due
				u.ClearDeadline = due == nil
			}
			if clearDue {
				u.ClearDeadline = true
			}
			if len(subtasks) > 0 {
				if u.Subtasks, err = parseSubtasks(subtasks); err != nil {
					return err
				}
			}

			t, err := s.svc.UpdateTask(ctx, id, u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n",
				ui.Good.Render("Updated"),
				ui.Muted.Render(shortID(t.ID)),
				t.Name,
				ui.Muted.Render(fmt.Sprintf("(%d XP)", t.Experience)),
			)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().BoolVar(&clearDue, "no-due", false, "Remove the deadline")
	cmd.Flags().StringArrayVarP(&subtasks, "subtask", "s", nil, "Replace a project's subtasks (repeatable)")

	return cmd
}
