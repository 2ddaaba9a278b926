package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adstedt/contentmax-sub005/internal/app"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/database/postgres"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
)

type serveOptions struct {
	migrate bool
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serve starts the API server backed by PostgreSQL, Redis and,
when brokers are configured, Kafka for run triggering.  The process shuts
down gracefully on SIGINT and SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := FromCommand(cmd)
			cfg, log := cc.Config, cc.Logger

			if opts.migrate {
				dsn := postgres.BuildDSN(cfg.Database)
				if err := postgres.RunMigrations(dsn, cfg.Database.MigrationPath); err != nil {
					return err
				}
				log.Info("migrations applied", logging.String("path", cfg.Database.MigrationPath))
			}

			api, err := app.BuildAPI(cfg, log)
			if err != nil {
				return err
			}
			defer api.Close()

			errCh := make(chan error, 1)
			go func() { errCh <- api.Server.Start() }()
			log.Info("api server started", logging.Int("port", cfg.Server.Port))

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				log.Info("shutting down", logging.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return api.Server.Stop(ctx)
		},
	}

	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending database migrations before serving")
	return cmd
}
