package root

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"taskquest/internal/engine"
	"taskquest/internal/ui"
)

func newBadgesCmd() *cobra.Command {
	var recheck bool

	cmd := &cobra.Command{
		Use:   "badges",
		Short: "Show the badge catalog and which badges are earned",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			if recheck {
				fresh, err := s.svc.EvaluateBadges(ctx)
				if err != nil {
					return err
				}
				if len(fresh) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("No new badges."))
				}
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"", "Badge", "Description", "Earned"})
			earned := 0
			for _, a := range engine.Achievements(s.svc.Unlocked()) {
				mark := text.FgHiBlack.Sprint("locked")
				if a.Earned {
					mark = text.FgGreen.Sprint("yes")
					earned++
				}
				t.AppendRow(table.Row{a.Icon, a.Name, a.Description, mark})
			}
			t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d/%d", earned, len(engine.Catalog()))})
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&recheck, "check", false, "Re-evaluate badges against history first")

	return cmd
}
