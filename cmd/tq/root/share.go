package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"taskquest/internal/model"
	"taskquest/internal/projectsync"
	"taskquest/internal/ui"
)

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <project-id>",
		Short: "Share a project and print its share code",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("project id is required")
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
			mgr, err := s.syncManager(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer mgr.Close()

			code, err := mgr.ShareProject(ctx, id, s.cfg.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Share code: %s\n", ui.Good.Render(ui.IconShared+" Shared"), ui.Key.Render(code))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Teammates join with: tq join "+code))
			return nil
		},
	}

	return cmd
}

func newJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <share-code>",
		Short: "Join a shared project",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("share code is required")
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

			mgr, err := s.syncManager(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer mgr.Close()

			p, err := mgr.JoinProject(ctx, args[0], s.cfg.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Good.Render(ui.IconShared+" Joined"), p.Name, ui.Muted.Render(fmt.Sprintf("(%d subtasks)", len(p.Subtasks))))
			return nil
		},
	}

	return cmd
}

func newToggleCmd() *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "toggle <project-id> <subtask-number>",
		Short: "Mark a project subtask done (or not done with --undo)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("project id and subtask number are required")
			}
			if n, err := strconv.Atoi(args[1]); err != nil || n < 1 {
				return errors.New("subtask number must be a positive integer")
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
			n, _ := strconv.Atoi(args[1])

			mgr, err := s.syncManager(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer mgr.Close()

			if err := mgr.ToggleSubtask(ctx, id, n-1, !undo); err != nil {
				return err
			}
			p, err := s.svc.LoadProject(ctx, id)
			if err != nil {
				return err
			}
			st := p.Subtasks[n-1]
			state := ui.Good.Render("done")
			if !st.Completed {
				state = ui.Warn.Render("open")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d. %s: %s\n", ui.KindIcon(true, p.IsShared), n, st.Name, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the subtask as not done")

	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll all shared projects and print changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, cleanup, err := openService(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			mgr, err := s.syncManager(ctx, nil, func(p model.Project) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%s %s %s\n", ui.IconSync, p.Name, ui.Muted.Render(progressText(p)))
			})
			if err != nil {
				return err
			}
			defer mgr.Close()

			projects, err := s.svc.SharedProjects(ctx)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("No shared projects to watch."))
				return nil
			}
			if err := mgr.WatchAll(projects); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Watching %d shared project(s) every %s. Ctrl-C to stop.\n", ui.IconSync, len(projects), s.cfg.Sync.PollInterval)

			select {
			case <-ctx.Done():
			case <-allDone(mgr, projects):
				fmt.Fprintln(out, ui.Warn.Render(ui.IconWarn+" Every poll loop stopped after repeated failures."))
			}
			for id, st := range mgr.States() {
				fmt.Fprintf(out, "- %s %s\n", shortID(id), ui.SyncStateText(st.String()))
			}
			return nil
		},
	}

	return cmd
}

// allDone closes once every project's poll loop has exited.
func allDone(mgr *projectsync.Manager, projects []model.Project) <-chan struct{} {
	var wg sync.WaitGroup
	for _, p := range projects {
		if c := mgr.Client(p.ID); c != nil {
			wg.Add(1)
			go func(c *projectsync.Client) {
				defer wg.Done()
				<-c.Done()
			}(c)
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func progressText(p model.Project) string {
	done := 0
	for _, st := range p.Subtasks {
		if st.Completed {
			done++
		}
	}
	return fmt.Sprintf("%d/%d subtasks done, %d member(s)", done, len(p.Subtasks), len(p.SharedWith))
}
