// Package app assembles the platform's components from configuration.  Both
// binaries and the CLI serve command go through these constructors so the
// wiring order (logger, metrics, stores, transports, interfaces) lives in one
// place.
package app

import (
	"context"
	"time"

	"github.com/Adstedt/contentmax-sub005/internal/application/pipeline"
	"github.com/Adstedt/contentmax-sub005/internal/application/reporting"
	"github.com/Adstedt/contentmax-sub005/internal/config"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/database/postgres"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/database/postgres/repositories"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/database/redis"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/messaging/kafka"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/prometheus"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/storage/minio"
	apihttp "github.com/Adstedt/contentmax-sub005/internal/interfaces/http"
	"github.com/Adstedt/contentmax-sub005/internal/interfaces/http/handlers"
)

// NewLogger builds the process logger from platform log config.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}
	var outputs []string
	if cfg.Output != "" {
		outputs = []string{cfg.Output}
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      format,
		OutputPaths: outputs,
	})
}

// Metrics bundles the collector with the registered application metrics.
type Metrics struct {
	Collector prometheus.MetricsCollector
	App       *prometheus.AppMetrics
}

// NewMetrics builds the metrics registry when exposition is enabled; returns
// nil otherwise, which every consumer treats as "don't record".
func NewMetrics(cfg config.MetricsConfig, log logging.Logger) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		return nil, err
	}
	return &Metrics{Collector: collector, App: prometheus.NewAppMetrics(collector)}, nil
}

// API is a fully wired API server plus the resources it owns.
type API struct {
	Server *apihttp.Server

	conn     *postgres.Connection
	redis    *redis.Client
	producer *kafka.Producer
	log      logging.Logger
}

// BuildAPI wires the read-side API: postgres repositories, the Redis summary
// cache, and a kafka producer for run triggering.  Kafka is optional; without
// brokers the trigger endpoint answers 503 while reads keep working.
func BuildAPI(cfg *config.Config, log logging.Logger) (*API, error) {
	metrics, err := NewMetrics(cfg.Metrics, log)
	if err != nil {
		return nil, err
	}

	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	redisClient, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	cache := redis.NewCache(redisClient, log,
		redis.WithPrefix(cfg.Redis.KeyPrefix),
		redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
	)

	api := &API{conn: conn, redis: redisClient, log: log}

	var trigger handlers.RunTrigger
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			api.Close()
			return nil, err
		}
		api.producer = producer
		trigger = pipeline.NewKafkaEventSink(producer)
	}

	taxonomyRepo := repositories.NewTaxonomyRepository(conn.DB(), log)
	metricsRepo := repositories.NewMetricsRepository(conn.DB(), log)
	scoreRepo := repositories.NewScoreRepository(conn.DB(), log)

	checks := map[string]handlers.HealthChecker{
		"postgres": conn,
		"redis":    handlers.HealthCheckerFunc(redisClient.Ping),
	}

	var appMetrics *prometheus.AppMetrics
	var collector prometheus.MetricsCollector
	if metrics != nil {
		appMetrics = metrics.App
		collector = metrics.Collector
	}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Mode:               cfg.Server.Mode,
		RunHandler:         handlers.NewRunHandler(trigger, cache, metricsRepo, taxonomyRepo, log),
		TaxonomyHandler:    handlers.NewTaxonomyHandler(taxonomyRepo, log),
		OpportunityHandler: handlers.NewOpportunityHandler(scoreRepo, cfg.Pipeline.TopN, log),
		HealthHandler:      handlers.NewHealthHandler(checks, log),
		Logger:             log,
		AppMetrics:         appMetrics,
		MetricsCollector:   collector,
	})

	api.Server = apihttp.NewServer(cfg.Server, router, log)
	return api, nil
}

// Close releases every resource the API owns, tolerating partial wiring.
func (a *API) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close failed", logging.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.log.Warn("postgres close failed", logging.Err(err))
		}
	}
}

// Worker is a fully wired run-executing worker and the resources it owns.
type Worker struct {
	Consumer *kafka.Consumer
	Service  *pipeline.Service
	Snapshot pipeline.SnapshotPaths

	exporter *reporting.Exporter
	conn     *postgres.Connection
	redis    *redis.Client
	producer *kafka.Producer
	log      logging.Logger
}

// BuildWorker wires the write side: the pipeline service with all persistence
// and publication collaborators, plus the consumer that executes a run for
// every run-requested event.  Snapshot inputs come from the configured files;
// ingestion itself stays outside the worker.
func BuildWorker(cfg *config.Config, snapshot pipeline.SnapshotPaths, log logging.Logger) (*Worker, error) {
	metrics, err := NewMetrics(cfg.Metrics, log)
	if err != nil {
		return nil, err
	}

	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	redisClient, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		conn.Close()
		return nil, err
	}

	w := &Worker{Snapshot: snapshot, conn: conn, redis: redisClient, log: log}

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.producer = producer

	var appMetrics *prometheus.AppMetrics
	if metrics != nil {
		appMetrics = metrics.App
	}

	cache := redis.NewCache(redisClient, log,
		redis.WithPrefix(cfg.Redis.KeyPrefix),
		redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
	)
	leaderboard := redis.NewLeaderboard(redisClient, log, cfg.Redis.KeyPrefix, cfg.Pipeline.CacheTTL)

	w.Service = pipeline.NewService(cfg.Pipeline, pipeline.Deps{
		Taxonomy:    repositories.NewTaxonomyRepository(conn.DB(), log),
		Metrics:     repositories.NewMetricsRepository(conn.DB(), log),
		Scores:      repositories.NewScoreRepository(conn.DB(), log),
		Events:      pipeline.NewKafkaEventSink(producer),
		Leaderboard: leaderboard,
		Cache:       cache,
		AppMetrics:  appMetrics,
	}, log)

	storageClient, err := minio.NewClient(cfg.MinIO, log)
	if err != nil {
		// Reports are a best-effort byproduct; runs proceed without storage.
		log.Warn("object storage unavailable, report export disabled", logging.Err(err))
	} else {
		w.exporter = reporting.NewExporter(minio.NewReportStore(storageClient, log), appMetrics, log)
	}

	retry := kafka.RetryPolicy{
		MaxRetries:      cfg.Worker.MaxRetries,
		Backoff:         cfg.Worker.RetryBackoff,
		DeadLetterTopic: kafka.TopicDeadLetter,
	}
	consumer, err := kafka.NewConsumer(cfg.Kafka, []string{kafka.TopicRunRequested}, retry, log)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.Consumer = consumer
	consumer.Subscribe(kafka.TopicRunRequested, w.handleRunRequested)

	return w, nil
}

// handleRunRequested executes one pipeline run for a run-requested event.
func (w *Worker) handleRunRequested(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.EnvelopeFromMessage(msg)
	if err != nil {
		return err
	}
	var payload kafka.RunRequestedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}

	w.log.Info("run requested",
		logging.String("request_id", string(payload.RunID)),
		logging.String("triggered_by", payload.TriggeredBy),
	)

	snap, err := pipeline.LoadSnapshot(w.Snapshot)
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := w.Service.Run(ctx, snap)
	if err != nil {
		return err
	}
	w.log.Info("run executed",
		logging.String("request_id", string(payload.RunID)),
		logging.String("run_id", string(res.Summary.RunID)),
		logging.Duration("elapsed", time.Since(started)),
	)

	if w.exporter != nil {
		exported, err := w.exporter.Export(ctx, res)
		if err != nil {
			// The run itself succeeded and is persisted; do not redeliver.
			w.log.Warn("report export failed", logging.Err(err))
			return nil
		}
		for _, e := range exported {
			w.log.Info("report exported", logging.String("key", e.Key), logging.Int64("size", e.Size))
		}
	}
	return nil
}

// Close releases every resource the worker owns, tolerating partial wiring.
func (w *Worker) Close() {
	if w.Consumer != nil {
		if err := w.Consumer.Close(); err != nil {
			w.log.Warn("kafka consumer close failed", logging.Err(err))
		}
	}
	if w.producer != nil {
		if err := w.producer.Close(); err != nil {
			w.log.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if w.redis != nil {
		if err := w.redis.Close(); err != nil {
			w.log.Warn("redis close failed", logging.Err(err))
		}
	}
	if w.conn != nil {
		if err := w.conn.Close(); err != nil {
			w.log.Warn("postgres close failed", logging.Err(err))
		}
	}
}
