package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskquest/internal/ui"
)

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a task; a completed task's XP is taken back",
		Long: `Remove a task, open or completed.

For a completed task this also:
- deducts the XP it awarded, early bonus included
- refunds any overdue penalty it cost
- deletes the completion record`,
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
			t, err := s.svc.GetTask(ctx, id)
			if err != nil {
				return err
			}
			change, err := s.svc.RemoveTask(ctx, id, t.Completed)
			if err != nil {
				return err
			}

			line := fmt.Sprintf("%s %s %s", ui.Warn.Render(ui.IconUndo+" Removed"), t.Name, ui.Muted.Render(shortID(t.ID)))
			if change.Delta != 0 {
				line += " " + ui.SignedXP(change.Delta)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			if change.LevelAfter < change.LevelBefore {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(fmt.Sprintf("%s Level decreased: %d → %d", ui.IconWarn, change.LevelBefore, change.LevelAfter)))
			}
			return nil
		},
	}

	return cmd
}
