package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskquest/internal/ui"
)

const Version = "0.3.0"

var (
	cfgPath string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:           "tq",
	Short:         "TaskQuest: a task tracker that pays out XP",
	Long:          "TaskQuest is a local-first task tracker with levels, streaks, badges and shared projects.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.taskquest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Session database path (overrides db_path)")

	rootCmd.AddCommand(
		newAddCmd(),
		newEditCmd(),
		newDoCmd(),
		newRmCmd(),
		newListCmd(),
		newStatusCmd(),
		newBadgesCmd(),
		newShareCmd(),
		newJoinCmd(),
		newToggleCmd(),
		newWatchCmd(),
		newServeCmd(),
		newBoardCmd(),
		newConfigCmd(),
		newBackupCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
