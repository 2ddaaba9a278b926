// API server entry point for ContentMax.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adstedt/contentmax-sub005/internal/app"
	"github.com/Adstedt/contentmax-sub005/internal/config"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/database/postgres"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	migrate := flag.Bool("migrate", false, "apply pending database migrations before serving")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	if *migrate {
		dsn := postgres.BuildDSN(cfg.Database)
		if err := postgres.RunMigrations(dsn, cfg.Database.MigrationPath); err != nil {
			log.Error("migrations failed", logging.Err(err))
			os.Exit(1)
		}
		log.Info("migrations applied", logging.String("path", cfg.Database.MigrationPath))
	}

	api, err := app.BuildAPI(cfg, log)
	if err != nil {
		log.Error("failed to wire api server", logging.Err(err))
		os.Exit(1)
	}
	defer api.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- api.Server.Start() }()
	log.Info("api server started", logging.Int("port", cfg.Server.Port))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", logging.Err(err))
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := api.Server.Stop(ctx); err != nil {
		log.Error("shutdown failed", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
