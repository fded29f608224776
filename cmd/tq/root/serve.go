package root

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"taskquest/internal/storage"
	"taskquest/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the shared project server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := storage.OpenServer(ctx, cfg.Server.Driver, cfg.Server.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Printf("serve: %s store ready", cfg.Server.Driver)
			srv := web.NewServer(storage.NewSharedProjectRepo(db), log.Default())
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Run gin in debug mode")

	return cmd
}
