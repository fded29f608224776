package root

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taskquest/internal/backup"
	"taskquest/internal/config"
	"taskquest/internal/ui"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up or restore the session through S3",
	}

	cmd.AddCommand(newBackupPushCmd(), newBackupPullCmd(), newBackupListCmd())

	return cmd
}

func openBackupStore(ctx context.Context, cfg *config.Config) (*backup.Store, error) {
	if cfg.Backup.Bucket == "" {
		return nil, errors.New("backup.bucket is not configured (or set TASKQUEST_BACKUP_BUCKET)")
	}
	client, err := backup.NewS3Client(ctx, cfg.Backup.Region, cfg.Backup.Profile)
	if err != nil {
		return nil, err
	}
	return backup.NewStore(client, cfg.Backup.Bucket, cfg.Backup.Prefix, log.Default())
}

func newBackupPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload a snapshot of the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, cleanup, err := openService(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			store, err := openBackupStore(ctx, s.cfg)
			if err != nil {
				return err
			}
			snap, err := s.svc.ExportSnapshot(ctx, s.cfg.UserID)
			if err != nil {
				return err
			}
			key, err := store.Push(ctx, snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Good.Render("Backed up"), key,
				ui.Muted.Render(fmt.Sprintf("(%d tasks, %d completions, %d XP)", len(snap.Tasks), len(snap.Completed), snap.TotalXP)))
			return nil
		},
	}
}

func newBackupPullCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "pull [key]",
		Short: "Replace the local session with a snapshot (latest when no key is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("pull replaces all local tasks, completions and badges; rerun with --yes")
			}
			ctx := context.Background()
			s, cleanup, err := openService(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			store, err := openBackupStore(ctx, s.cfg)
			if err != nil {
				return err
			}
			var key string
			if len(args) == 1 {
				key = args[0]
			} else if key, err = store.Latest(ctx, s.cfg.UserID); err != nil {
				return err
			}

			snap, err := store.Pull(ctx, key)
			if err != nil {
				return err
			}
			if err := s.svc.ImportSnapshot(ctx, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Good.Render("Restored"), key,
				ui.Muted.Render(fmt.Sprintf("(taken %s, %d XP)", snap.TakenAt.In(s.svc.Location()).Format("2006-01-02 15:04"), snap.TotalXP)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm replacing the local session")

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots for this user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openBackupStore(ctx, cfg)
			if err != nil {
				return err
			}
			keys, err := store.List(ctx, cfg.UserID)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("No backups yet."))
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
