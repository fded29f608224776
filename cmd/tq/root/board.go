package root

import (
	"context"
	"io"
	"log"

	"github.com/spf13/cobra"

	"taskquest/internal/model"
	"taskquest/internal/tui"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the TUI dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			// Notices would corrupt the TUI; the board shows them in its log line.
			s, cleanup, err := openService(ctx, io.Discard)
			if err != nil {
				return err
			}
			defer cleanup()

			changes := make(chan model.Project, 16)
			mgr, err := s.syncManager(ctx, log.New(io.Discard, "", 0), func(p model.Project) {
				select {
				case changes <- p:
				default:
				}
			})
			if err != nil {
				return err
			}

			projects, err := s.svc.SharedProjects(ctx)
			if err != nil {
				return err
			}
			if err := mgr.WatchAll(projects); err != nil {
				return err
			}

			return tui.RunBoard(ctx, s.svc, mgr, changes, cmd.OutOrStdout())
		},
	}

	return cmd
}
