package root

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"taskquest/internal/engine"
	"taskquest/internal/model"
	"taskquest/internal/ui"
)

func newListCmd() *cobra.Command {
	var completed bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open tasks (or completions with --done)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			if completed {
				return listCompleted(ctx, cmd, s.svc)
			}

			tasks, err := s.svc.ListTasks(ctx)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("No open tasks. Add one with: tq add <name>"))
				return nil
			}

			now := s.svc.Now()
			t := newTable(cmd)
			t.AppendHeader(table.Row{"ID", "", "Name", "Diff", "Imp", "Due", "Label", "XP"})
			for _, task := range tasks {
				name := task.Name
				if task.Urgent {
					name += " " + ui.IconBolt
				}
				if task.IsProject {
					done := 0
					for _, st := range task.Subtasks {
						if st.Completed {
							done++
						}
					}
					name += text.FgHiBlack.Sprintf(" [%d/%d]", done, len(task.Subtasks))
				}
				due := ""
				if task.Deadline != nil {
					due = task.Deadline.String()
					if engine.IsOverdue(task.Deadline, now) {
						due = text.FgRed.Sprint(due)
					}
				}
				t.AppendRow(table.Row{
					shortID(task.ID),
					ui.KindIcon(task.IsProject, task.IsShared),
					name,
					task.Difficulty,
					task.Importance,
					due,
					task.Label,
					task.Experience,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&completed, "done", false, "Show completed tasks instead")

	return cmd
}

func listCompleted(ctx context.Context, cmd *cobra.Command, svc *engine.Service) error {
	done, err := svc.ListCompleted(ctx)
	if err != nil {
		return err
	}
	if len(done) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Nothing completed yet."))
		return nil
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{"Completed", "Name", "Base", "Bonus", "Penalty", "Total"})
	for _, c := range done {
		when := "-"
		if !c.CompletedAt.IsZero() {
			when = c.CompletedAt.In(svc.Location()).Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{when, c.Name, c.Experience, c.EarlyBonus, c.OverduePenalty, c.TotalXP()})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks", len(done)), "", "", "", sumXP(done)})
	t.Render()
	return nil
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false
	t.Style().Format.Header = text.FormatDefault
	t.Style().Color.Header = text.Colors{text.FgGreen, text.Bold}
	return t
}

func sumXP(done []model.CompletedTask) int {
	total := 0
	for _, c := range done {
		total += c.TotalXP()
	}
	return total
}
