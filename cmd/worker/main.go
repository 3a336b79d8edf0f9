package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/personalization/internal/cache"
	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/profile"
	"github.com/benvon/personalization/internal/telemetry"
	"github.com/benvon/personalization/internal/workers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName  = "personalization-worker"
	dlqInterval  = time.Hour
	dlqRetention = 24 * time.Hour
)

var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	noScheduler := flag.Bool("no-scheduler", false, "Consume jobs only; do not schedule periodic rebuilds")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.RequireQueue(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.Duration("rebuild_interval", cfg.RebuildInterval),
		zap.Bool("scheduler_enabled", !*noScheduler),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, telemetry.Options{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Endpoint:       cfg.OTELEndpoint,
			SampleRatio:    cfg.OTELSampleRatio,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = telemetry.Shutdown(shutdownCtx, tp)
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Rebuilds refresh the API profile cache when Redis is configured
	var profileCache cache.Cache
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		profileCache = cache.NewRedisCache(redisClient)
		zapLogger.Info("connected_to_redis")
	}

	jobQueue, err := queue.ConnectWithRetry(ctx, cfg.RabbitMQURL, 10, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	activityRepo := database.NewActivityRepository(db)
	store := cache.NewProfileStore(profileCache, database.NewProfileRepository(db), cache.StoreOptions{}, zapLogger)
	rebuilder := workers.NewProfileRebuilder(
		activityRepo,
		store,
		profile.NewBuilder(cfg.Tuning.Profile),
		jobQueue,
		zapLogger,
	)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-msgChan:
				if !ok {
					return errors.New("message channel closed")
				}
				job := msg.GetJob()
				if err := rebuilder.ProcessJob(gctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.String("job_id", job.ID.String()),
						zap.String("job_type", string(job.Type)),
						zap.Error(err),
					)
				}
			case err, ok := <-errChan:
				if !ok {
					errChan = nil
					continue
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	})

	if !*noScheduler {
		scheduler := workers.NewRebuildScheduler(
			jobQueue,
			activityRepo,
			cfg.RebuildInterval,
			cfg.RebuildActiveWindow,
			cfg.RebuildEnqueueRate,
			zapLogger,
		)
		g.Go(func() error {
			if err := scheduler.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	gc := queue.NewGarbageCollector(jobQueue, dlqInterval, dlqRetention, zapLogger)
	g.Go(func() error {
		if err := gc.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	zapLogger.Info("worker_started")
	if err := g.Wait(); err != nil {
		zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		return
	}
	zapLogger.Info("worker_stopped")
}
