package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"taskquest/internal/engine"
	"taskquest/internal/ui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, XP, streak and badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := s.svc.Stats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			nextAt := engine.XPRequiredForLevel(st.Level + 1)

			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, "Player Status"))
			fmt.Fprintln(out, ui.LabelValue("Player", s.cfg.UserID))
			fmt.Fprintln(out, ui.LabelValue("Level", st.Level))
			fmt.Fprintln(out, ui.LabelValue("Total XP", fmt.Sprintf("%d (next level at %d, %d to go)", st.TotalXP, nextAt, nextAt-st.TotalXP)))
			fmt.Fprintf(out, "%s %d/%d\n", ui.ProgressBar(st.LevelXP, st.LevelCost, 30), st.LevelXP, st.LevelCost)
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.LabelValue(ui.IconFire+" Streak", fmt.Sprintf("%d days (longest %d)", st.Streak.Current, st.Streak.Longest)))
			fmt.Fprintln(out, ui.LabelValue("Completed", st.CompletedCount))
			fmt.Fprintln(out, ui.LabelValue(ui.IconTrophy+" Badges", fmt.Sprintf("%d of %d", len(st.Badges), len(engine.Catalog()))))
			for _, b := range st.Badges {
				fmt.Fprintf(out, "- %s %s\n", b.Icon, b.Name)
			}
			return nil
		},
	}

	return cmd
}
