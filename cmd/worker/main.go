// Pipeline worker entry point for ContentMax.  The worker consumes
// run-requested events and executes the full pipeline for each one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adstedt/contentmax-sub005/internal/app"
	"github.com/Adstedt/contentmax-sub005/internal/application/pipeline"
	"github.com/Adstedt/contentmax-sub005/internal/config"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	products := flag.String("products", "", "product snapshot JSON (required)")
	search := flag.String("search", "", "search metrics JSON")
	behavioral := flag.String("behavioral", "", "behavioral metrics JSON")
	urlMap := flag.String("url-map", "", "URL to node id map JSON")
	flag.Parse()

	if *products == "" {
		fmt.Fprintln(os.Stderr, "flag -products is required")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	snapshot := pipeline.SnapshotPaths{
		Products:   *products,
		Search:     *search,
		Behavioral: *behavioral,
		URLMap:     *urlMap,
	}

	worker, err := app.BuildWorker(cfg, snapshot, log)
	if err != nil {
		log.Error("failed to wire worker", logging.Err(err))
		os.Exit(1)
	}
	defer worker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Consumer.Start(ctx); err != nil {
		log.Error("consumer failed to start", logging.Err(err))
		os.Exit(1)
	}
	log.Info("worker started", logging.String("snapshot", snapshot.Products))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", logging.String("signal", sig.String()))
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
