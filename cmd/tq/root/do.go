package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskquest/internal/ui"
)

func newDoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "do <id>",
		Short: "Complete a task",
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
			res, err := s.svc.CompleteTask(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s\n", ui.Good.Render(ui.IconDone+" Completed"), t.Name, ui.SignedXP(res.XPAwarded))
			if res.EarlyBonus > 0 {
				fmt.Fprintf(out, "  %s early bonus %s\n", ui.IconClock, ui.SignedXP(res.EarlyBonus))
			}
			if res.OverduePenalty < 0 {
				fmt.Fprintf(out, "  %s overdue %s\n", ui.IconWarn, ui.SignedXP(res.OverduePenalty))
			}
			fmt.Fprintln(out, ui.LabelValue("Level", fmt.Sprintf("%d → %d (total %d XP)", res.LevelBefore, res.NewLevel, res.TotalXP)))
			return nil
		},
	}

	return cmd
}
